package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"check-review-gateway/internal/config"
	"check-review-gateway/internal/models"
	"check-review-gateway/internal/services/review"
)

var _ review.AuditRecorder = (*SubmissionAuditRepository)(nil)

func TestNewSubmissionAudit(t *testing.T) {
	sessionID := uuid.New()
	row, err := newSubmissionAudit(review.AuditEntry{
		SessionID:    sessionID,
		BatchID:      12,
		Forced:       true,
		Total:        decimal.RequireFromString("99.5"),
		Expected:     decimal.RequireFromString("100"),
		Outcome:      review.AuditDone,
		DealsCreated: 3,
		Errors:       []string{"check 4: no contact"},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, sessionID, row.SessionID)
	assert.Equal(t, 12, row.BatchID)
	assert.True(t, row.Forced)
	assert.Equal(t, "99.50", row.Total)
	assert.Equal(t, "100.00", row.Expected)
	assert.Equal(t, "done", row.Outcome)
	assert.Equal(t, 3, row.DealsCreated)
	assert.JSONEq(t, `["check 4: no contact"]`, string(row.Errors))
}

func TestNewSubmissionAudit_NoErrorsEncodesEmptyList(t *testing.T) {
	row, err := newSubmissionAudit(review.AuditEntry{Outcome: review.AuditDeclined})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(row.Errors))
	assert.Equal(t, "0.00", row.Total)
}

// auditDatabase connects to TEST_AUDIT_DATABASE_URL when set, otherwise to a
// throwaway Postgres container.
func auditDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("database test skipped in short mode")
	}

	url := os.Getenv("TEST_AUDIT_DATABASE_URL")
	if url == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		t.Cleanup(cancel)

		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("check_review"),
			tcpostgres.WithUsername("check_review"),
			tcpostgres.WithPassword("check_review"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				t.Logf("terminate postgres container: %v", err)
			}
		})

		url, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := config.InitDB(config.DatabaseConfig{URL: url})
	require.NoError(t, err)
	return db
}

func TestSubmissionAuditRepository_RoundTrip(t *testing.T) {
	db := auditDatabase(t)
	repo := NewSubmissionAuditRepository(db)
	batchID := int(uuid.New().ID() & 0x3fffffff)
	ctx := context.Background()
	t.Cleanup(func() {
		db.Where("batch_id = ?", batchID).Delete(&models.SubmissionAudit{})
	})

	require.NoError(t, repo.RecordSubmission(ctx, review.AuditEntry{
		SessionID: uuid.New(),
		BatchID:   batchID,
		Total:     decimal.RequireFromString("100"),
		Expected:  decimal.RequireFromString("150"),
		Outcome:   review.AuditTransport,
		Message:   "Network error. Please try again.",
	}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.RecordSubmission(ctx, review.AuditEntry{
		SessionID:    uuid.New(),
		BatchID:      batchID,
		Forced:       true,
		Total:        decimal.RequireFromString("100"),
		Expected:     decimal.RequireFromString("150"),
		Outcome:      review.AuditDone,
		DealsCreated: 2,
		Errors:       []string{"check 4: no contact"},
	}))
	require.NoError(t, repo.RecordSubmission(ctx, review.AuditEntry{
		SessionID: uuid.New(),
		BatchID:   batchID + 1,
		Outcome:   review.AuditDeclined,
	}))
	t.Cleanup(func() {
		db.Where("batch_id = ?", batchID+1).Delete(&models.SubmissionAudit{})
	})

	audits, err := repo.ListByBatch(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, audits, 2)

	assert.Equal(t, "done", audits[0].Outcome)
	assert.True(t, audits[0].Forced)
	assert.Equal(t, "100.00", audits[0].Total)
	assert.Equal(t, "150.00", audits[0].Expected)
	assert.JSONEq(t, `["check 4: no contact"]`, string(audits[0].Errors))
	assert.Equal(t, "transport_failure", audits[1].Outcome)
	assert.Equal(t, "Network error. Please try again.", audits[1].Message)
	assert.False(t, audits[0].CreatedAt.Before(audits[1].CreatedAt))

	none, err := repo.ListByBatch(ctx, batchID+2)
	require.NoError(t, err)
	assert.Empty(t, none)
}
