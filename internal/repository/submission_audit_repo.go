package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"check-review-gateway/internal/models"
	"check-review-gateway/internal/services/review"
)

// SubmissionAuditRepository persists submission attempts. It satisfies
// review.AuditRecorder.
type SubmissionAuditRepository struct {
	db *gorm.DB
}

func NewSubmissionAuditRepository(db *gorm.DB) *SubmissionAuditRepository {
	return &SubmissionAuditRepository{db: db}
}

func (r *SubmissionAuditRepository) RecordSubmission(ctx context.Context, entry review.AuditEntry) error {
	row, err := newSubmissionAudit(entry)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("record submission for batch %d: %w", entry.BatchID, err)
	}
	return nil
}

// ListByBatch returns a batch's submission attempts, newest first.
func (r *SubmissionAuditRepository) ListByBatch(ctx context.Context, batchID int) ([]models.SubmissionAudit, error) {
	var audits []models.SubmissionAudit
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC").
		Find(&audits).Error
	return audits, err
}

func newSubmissionAudit(entry review.AuditEntry) (*models.SubmissionAudit, error) {
	errs := entry.Errors
	if errs == nil {
		errs = []string{}
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("encode submission errors: %w", err)
	}

	return &models.SubmissionAudit{
		ID:           uuid.New(),
		SessionID:    entry.SessionID,
		BatchID:      entry.BatchID,
		Forced:       entry.Forced,
		Total:        entry.Total.StringFixed(2),
		Expected:     entry.Expected.StringFixed(2),
		Outcome:      string(entry.Outcome),
		DealsCreated: entry.DealsCreated,
		Message:      entry.Message,
		Errors:       datatypes.JSON(raw),
	}, nil
}
