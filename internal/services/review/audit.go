package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuditOutcome is what happened to a submission attempt.
type AuditOutcome string

const (
	AuditDone      AuditOutcome = "done"
	AuditDeclined  AuditOutcome = "declined"
	AuditLogical   AuditOutcome = AuditOutcome(KindLogical)
	AuditTransport AuditOutcome = AuditOutcome(KindTransport)
)

// AuditEntry records one submission attempt, including declined mismatch
// confirmations and forced overrides.
type AuditEntry struct {
	SessionID    uuid.UUID
	BatchID      int
	Forced       bool
	Total        decimal.Decimal
	Expected     decimal.Decimal
	Outcome      AuditOutcome
	DealsCreated int
	Message      string
	Errors       []string
}

type AuditRecorder interface {
	RecordSubmission(ctx context.Context, entry AuditEntry) error
}

// LogAuditRecorder writes audit entries to the log only.
type LogAuditRecorder struct {
	logger zerolog.Logger
}

func NewLogAuditRecorder(logger zerolog.Logger) *LogAuditRecorder {
	return &LogAuditRecorder{logger: logger}
}

func (r *LogAuditRecorder) RecordSubmission(_ context.Context, entry AuditEntry) error {
	r.logger.Info().
		Str("session_id", entry.SessionID.String()).
		Int("batch_id", entry.BatchID).
		Bool("forced", entry.Forced).
		Str("total", entry.Total.StringFixed(2)).
		Str("expected", entry.Expected.StringFixed(2)).
		Str("outcome", string(entry.Outcome)).
		Int("deals_created", entry.DealsCreated).
		Strs("errors", entry.Errors).
		Str("message", entry.Message).
		Msg("submission audit")
	return nil
}
