package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"check-review-gateway/internal/checkapi"
	"check-review-gateway/internal/models"
	"check-review-gateway/internal/services/review"
)

// Upstream is the part of the processing service the gateway talks to.
type Upstream interface {
	review.Backend
	review.CheckGetter
	Upload(ctx context.Context, filename string, file io.Reader, appealCode string) (*models.UploadResponse, error)
	ListBatches(ctx context.Context) ([]models.Batch, error)
	FindBatch(ctx context.Context, batchID int) (*models.Batch, error)
	DeleteBatch(ctx context.Context, batchID int) error
	StreamStatus(ctx context.Context, batchID int, fn func(models.ProcessingStatus) bool) error
}

type ReviewHandler struct {
	upstream Upstream
	sessions *review.Registry
	audit    review.AuditRecorder
	settings review.Settings
	logger   zerolog.Logger

	presenters sync.Map // uuid.UUID -> *review.SnapshotPresenter
}

func NewReviewHandler(upstream Upstream, sessions *review.Registry, audit review.AuditRecorder, settings review.Settings, logger zerolog.Logger) *ReviewHandler {
	h := &ReviewHandler{
		upstream: upstream,
		sessions: sessions,
		audit:    audit,
		settings: settings,
		logger:   logger,
	}
	sessions.OnRemove(func(id uuid.UUID) { h.presenters.Delete(id) })
	return h
}

type sessionResponse struct {
	review.View
	Notices  []review.Notice `json:"notices,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
}

func (h *ReviewHandler) CreateSession(c *gin.Context) {
	var payload struct {
		BatchID        int              `json:"batch_id" binding:"required"`
		CheckIDs       []int            `json:"check_ids" binding:"required,min=1"`
		ExpectedAmount *decimal.Decimal `json:"expected_amount"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()

	expected := decimal.Zero
	if payload.ExpectedAmount != nil {
		expected = *payload.ExpectedAmount
		if err := review.ValidateExpected(expected); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected amount"})
			return
		}
	} else {
		batch, err := h.upstream.FindBatch(ctx, payload.BatchID)
		switch {
		case errors.Is(err, checkapi.ErrNotFound):
			h.logger.Warn().Int("batch_id", payload.BatchID).Msg("batch not listed, reviewing without expected amount")
		case err != nil:
			h.respondError(c, err)
			return
		default:
			expected = review.ExpectedFromBatch(batch)
		}
	}

	checks, err := review.LoadChecks(ctx, h.upstream, payload.CheckIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := review.CheckBatch(payload.BatchID, checks); err != nil {
		h.respondError(c, err)
		return
	}

	presenter := review.NewSnapshotPresenter()
	session := review.NewSession(payload.BatchID, expected, checks, h.upstream,
		review.WithPresenter(presenter),
		review.WithAuditRecorder(h.audit),
		review.WithLogger(h.logger),
		review.WithSettings(h.settings),
	)
	h.presenters.Store(session.ID, presenter)
	h.sessions.Add(session)

	h.logger.Info().
		Str("session_id", session.ID.String()).
		Int("batch_id", payload.BatchID).
		Int("checks", len(checks)).
		Str("expected", expected.StringFixed(2)).
		Msg("review session opened")

	c.JSON(http.StatusCreated, h.sessionResponse(session))
}

func (h *ReviewHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// SaveFields applies `{field: value}` edits. Autosave runs in the background,
// so the answer is 202 whatever the processing service later says.
func (h *ReviewHandler) SaveFields(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	checkID, ok := checkIDParam(c)
	if !ok {
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	fields := make([]string, 0, len(payload))
	values := make(map[string]string, len(payload))
	for field, raw := range payload {
		if !models.EditableFields[field] {
			h.respondError(c, fmt.Errorf("%q: %w", field, review.ErrUnknownField))
			return
		}
		value, err := fieldValue(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid value for %s", field)})
			return
		}
		fields = append(fields, field)
		values[field] = value
	}
	sort.Strings(fields)

	for _, field := range fields {
		if err := session.SaveField(c.Request.Context(), checkID, field, values[field]); err != nil {
			h.respondError(c, err)
			return
		}
	}

	item, err := session.Item(checkID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"item": item, "evaluation": session.Evaluate()})
}

func (h *ReviewHandler) SearchContacts(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	checkID, ok := checkIDParam(c)
	if !ok {
		return
	}

	candidates, err := session.SearchContacts(c.Request.Context(), checkID, c.Query("name"), c.Query("zip"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": candidates})
}

func (h *ReviewHandler) SelectContact(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	checkID, ok := checkIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		ContactID   string `json:"contact_id" binding:"required"`
		ContactName string `json:"contact_name"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item, err := session.SelectContact(c.Request.Context(), checkID, payload.ContactID, payload.ContactName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Submit answers 409 with the mismatch when the reviewer has to confirm.
func (h *ReviewHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	out, err := session.Submit(c.Request.Context())
	h.respondOutcome(c, session, out, err)
}

func (h *ReviewHandler) ConfirmSubmit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	out, err := session.ConfirmSubmit(c.Request.Context())
	h.respondOutcome(c, session, out, err)
}

func (h *ReviewHandler) CancelSubmit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	out, err := session.CancelConfirm(c.Request.Context())
	h.respondOutcome(c, session, out, err)
}

// respondOutcome answers a submit action. Notices raised by the action travel
// in this response only, so they are drained from the session's presenter.
func (h *ReviewHandler) respondOutcome(c *gin.Context, session *review.Session, out review.Outcome, err error) {
	if val, ok := h.presenters.Load(session.ID); ok {
		val.(*review.SnapshotPresenter).DrainNotices()
	}
	if err != nil {
		h.respondError(c, err, out.Notices...)
		return
	}

	switch out.State {
	case review.StateConfirming:
		c.JSON(http.StatusConflict, out)
	default:
		c.JSON(http.StatusOK, out)
	}
}

// Upload validates the file and appeal code before handing the PDF to the
// processing service.
func (h *ReviewHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("pdf_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if !checkapi.IsPDF(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a PDF file"})
		return
	}
	appealCode := c.DefaultPostForm("appeal_code", models.DefaultAppealCode)
	if _, ok := models.AppealCodes[appealCode]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown appeal code %q", appealCode)})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer func() { _ = file.Close() }()

	resp, err := h.upstream.Upload(c.Request.Context(), header.Filename, file, appealCode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !resp.Success {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	h.logger.Info().
		Str("filename", header.Filename).
		Str("appeal_code", appealCode).
		Int("batch_id", resp.BatchID).
		Msg("batch uploaded")
	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) ListBatches(c *gin.Context) {
	batches, err := h.upstream.ListBatches(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if batches == nil {
		batches = []models.Batch{}
	}
	c.JSON(http.StatusOK, batches)
}

func (h *ReviewHandler) DeleteBatch(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	if err := h.upstream.DeleteBatch(c.Request.Context(), batchID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SubmissionHistory lists the recorded submission attempts of a batch.
type SubmissionHistory interface {
	ListByBatch(ctx context.Context, batchID int) ([]models.SubmissionAudit, error)
}

// ListSubmissions returns a batch's submission attempts, newest first. It is
// only available when the audit is kept in a database.
func (h *ReviewHandler) ListSubmissions(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	history, ok := h.audit.(SubmissionHistory)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission history is not stored"})
		return
	}
	audits, err := history.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		h.logger.Error().Err(err).Int("batch_id", batchID).Msg("failed to list submissions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list submissions"})
		return
	}
	c.JSON(http.StatusOK, audits)
}

// StreamStatus re-streams processing status events of a batch to the browser.
func (h *ReviewHandler) StreamStatus(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}

	started := false
	err := h.upstream.StreamStatus(c.Request.Context(), batchID, func(status models.ProcessingStatus) bool {
		if !started {
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			started = true
		}
		c.SSEvent("message", status)
		c.Writer.Flush()
		return c.Request.Context().Err() == nil
	})
	if err == nil {
		return
	}
	if c.Request.Context().Err() != nil {
		return
	}

	h.logger.Warn().Err(err).Int("batch_id", batchID).Msg("status stream ended with error")
	if !started {
		h.respondError(c, err)
		return
	}
	c.SSEvent("message", models.ProcessingStatus{Status: "error", Message: err.Error()})
	c.Writer.Flush()
}

func (h *ReviewHandler) session(c *gin.Context) (*review.Session, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return nil, false
	}
	session, err := h.sessions.Get(id)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return session, true
}

func (h *ReviewHandler) sessionResponse(session *review.Session) sessionResponse {
	resp := sessionResponse{View: session.View()}
	if val, ok := h.presenters.Load(session.ID); ok {
		presenter := val.(*review.SnapshotPresenter)
		resp.Notices = presenter.DrainNotices()
		resp.Redirect = presenter.Snapshot().Redirect
	}
	return resp
}

func checkIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("checkId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check ID"})
		return 0, false
	}
	return id, true
}

func batchIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return 0, false
	}
	return id, true
}

// fieldValue accepts the JSON scalars a browser form can send.
func fieldValue(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("unsupported value %T", raw)
	}
}
