package review

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"check-review-gateway/internal/metrics"
)

type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateConfirming SubmissionState = "confirming"
	StateSubmitting SubmissionState = "submitting"
	StateDone       SubmissionState = "done"
	StateFailed     SubmissionState = "failed"
)

// Outcome is the result of one step of the submission flow.
type Outcome struct {
	State        SubmissionState `json:"state"`
	Forced       bool            `json:"forced"`
	Mismatch     *Mismatch       `json:"mismatch,omitempty"`
	DealsCreated int             `json:"deals_created"`
	Errors       []string        `json:"errors,omitempty"`
	Redirect     string          `json:"redirect,omitempty"`
	Notices      []Notice        `json:"notices,omitempty"`
}

func (s *Session) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Control() Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control
}

func (s *Session) submittableLocked() error {
	switch s.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateDone:
		return ErrSessionClosed
	}
	return nil
}

// Submit starts a submission. When an expected amount is set and the current
// total is off by more than the tolerance, the session moves to Confirming and
// nothing is sent; the caller must ConfirmSubmit or CancelConfirm.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if err := s.submittableLocked(); err != nil {
		state := s.state
		s.mu.Unlock()
		return Outcome{State: state}, err
	}
	s.pending = nil

	if s.Expected.IsPositive() {
		if ev := s.evaluateLocked(); ev.Status == StatusMismatch {
			mismatch := ev.Mismatch()
			s.state = StateConfirming
			s.pending = &mismatch
			s.mu.Unlock()

			metrics.ConfirmationsTotal.WithLabelValues("requested").Inc()
			s.logger.Info().
				Str("total", mismatch.Total.StringFixed(2)).
				Str("expected", mismatch.Expected.StringFixed(2)).
				Msg("total mismatch, confirmation required")
			return Outcome{State: StateConfirming, Mismatch: &mismatch}, nil
		}
	}

	return s.executeLocked(ctx, false)
}

// ConfirmSubmit is the reviewer accepting the mismatch warning. The batch is
// submitted with force_submit set; the total is not checked again unless
// RecheckOnConfirm is enabled. With the recheck, a total that now matches is
// submitted without force and a changed mismatch asks again.
func (s *Session) ConfirmSubmit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateConfirming || s.pending == nil {
		state := s.state
		s.mu.Unlock()
		return Outcome{State: state}, ErrNotConfirming
	}

	if s.settings.RecheckOnConfirm {
		ev := s.evaluateLocked()
		if ev.Status != StatusMismatch {
			// Edits since the warning brought the total back in line.
			metrics.ConfirmationsTotal.WithLabelValues("resolved").Inc()
			return s.executeLocked(ctx, false)
		}
		if !ev.Total.Equal(s.pending.Total) {
			mismatch := ev.Mismatch()
			s.pending = &mismatch
			s.mu.Unlock()

			metrics.ConfirmationsTotal.WithLabelValues("requested").Inc()
			return Outcome{State: StateConfirming, Mismatch: &mismatch}, nil
		}
	}

	metrics.ConfirmationsTotal.WithLabelValues("accepted").Inc()
	return s.executeLocked(ctx, true)
}

// CancelConfirm is the reviewer declining the mismatch warning. Nothing is sent
// and the submit control stays enabled.
func (s *Session) CancelConfirm(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateConfirming || s.pending == nil {
		state := s.state
		s.mu.Unlock()
		return Outcome{State: state}, ErrNotConfirming
	}
	mismatch := *s.pending
	s.pending = nil
	s.state = StateIdle
	s.mu.Unlock()

	metrics.ConfirmationsTotal.WithLabelValues("declined").Inc()
	s.record(ctx, AuditEntry{
		Total:    mismatch.Total,
		Expected: mismatch.Expected,
		Outcome:  AuditDeclined,
	})
	return Outcome{State: StateIdle, Mismatch: &mismatch}, nil
}

// executeLocked sends the submission. It must be called with s.mu held and
// releases it.
func (s *Session) executeLocked(ctx context.Context, force bool) (Outcome, error) {
	ev := s.evaluateLocked()
	s.state = StateSubmitting
	s.pending = nil
	s.control = Control{Enabled: false, Label: SubmittingLabel}
	s.mu.Unlock()

	s.presenter.SubmitControl(Control{Enabled: false, Label: SubmittingLabel})

	start := time.Now()
	resp, err := s.backend.SubmitBatch(ctx, s.BatchID, force)
	metrics.ObserveUpstream("submit_batch", start)

	entry := AuditEntry{Forced: force, Total: ev.Total, Expected: ev.Expected}

	if err != nil {
		notice := Notice{Level: NoticeError, Text: networkErrorMessage}
		s.fail(ctx, entry, AuditTransport, notice)
		s.logger.Error().Err(err).Bool("forced", force).Msg("batch submission transport failure")
		return Outcome{State: StateFailed, Forced: force, Notices: []Notice{notice}},
			&SubmitError{Kind: KindTransport, Message: networkErrorMessage, Err: err}
	}

	if !resp.Success {
		message := resp.Error
		if message == "" {
			message = unknownErrorMessage
		}
		notice := Notice{Level: NoticeError, Title: "Submission failed", Text: message}
		s.fail(ctx, entry, AuditLogical, notice)
		s.logger.Warn().Str("error", message).Bool("forced", force).Msg("batch submission rejected")
		return Outcome{State: StateFailed, Forced: force, Notices: []Notice{notice}},
			&SubmitError{Kind: KindLogical, Message: message}
	}

	notices := []Notice{{
		Level: NoticeInfo,
		Text:  fmt.Sprintf("Successfully created %d deals in HubSpot!", resp.DealsCreated),
	}}
	if len(resp.Errors) > 0 {
		notices = append(notices, Notice{
			Level: NoticeWarning,
			Title: "Some errors occurred",
			Text:  strings.Join(resp.Errors, "\n"),
		})
	}

	s.mu.Lock()
	s.state = StateDone
	onDone := s.onDone
	s.mu.Unlock()

	for _, n := range notices {
		s.presenter.Notify(n)
	}
	s.presenter.Navigate(s.settings.IndexPath)

	metrics.SubmissionsTotal.WithLabelValues(string(AuditDone), strconv.FormatBool(force)).Inc()
	entry.Outcome = AuditDone
	entry.DealsCreated = resp.DealsCreated
	entry.Errors = resp.Errors
	s.record(ctx, entry)
	s.logger.Info().
		Int("deals_created", resp.DealsCreated).
		Int("errors", len(resp.Errors)).
		Bool("forced", force).
		Msg("batch submitted")

	if onDone != nil {
		onDone()
	}

	return Outcome{
		State:        StateDone,
		Forced:       force,
		DealsCreated: resp.DealsCreated,
		Errors:       resp.Errors,
		Redirect:     s.settings.IndexPath,
		Notices:      notices,
	}, nil
}

// fail returns the session to a retryable state with the submit control
// restored.
func (s *Session) fail(ctx context.Context, entry AuditEntry, outcome AuditOutcome, notice Notice) {
	s.mu.Lock()
	s.state = StateFailed
	s.control = idleControl()
	s.mu.Unlock()

	s.presenter.Notify(notice)
	s.presenter.SubmitControl(idleControl())

	metrics.SubmissionsTotal.WithLabelValues(string(outcome), strconv.FormatBool(entry.Forced)).Inc()
	entry.Outcome = outcome
	entry.Message = notice.Text
	s.record(ctx, entry)
}

func (s *Session) record(ctx context.Context, entry AuditEntry) {
	entry.SessionID = s.ID
	entry.BatchID = s.BatchID
	if err := s.audit.RecordSubmission(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn().Err(err).Str("outcome", string(entry.Outcome)).Msg("failed to record submission audit")
	}
}

// Confirmer asks the reviewer whether to submit despite a mismatch.
type Confirmer interface {
	Confirm(ctx context.Context, m Mismatch) (bool, error)
}

type ConfirmerFunc func(ctx context.Context, m Mismatch) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, m Mismatch) (bool, error) {
	return f(ctx, m)
}

// SubmitWith runs the whole submission flow, asking confirmer whenever the
// session needs confirmation. A declined confirmation returns an Idle outcome
// and no error.
func (s *Session) SubmitWith(ctx context.Context, confirmer Confirmer) (Outcome, error) {
	out, err := s.Submit(ctx)
	for err == nil && out.State == StateConfirming {
		accepted, cerr := confirmer.Confirm(ctx, *out.Mismatch)
		if cerr != nil || !accepted {
			declined, _ := s.CancelConfirm(ctx)
			return declined, cerr
		}
		out, err = s.ConfirmSubmit(ctx)
	}
	return out, err
}
