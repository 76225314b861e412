package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubmissionAudit struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID      `gorm:"type:uuid;index" json:"session_id"`
	BatchID      int            `gorm:"index" json:"batch_id"`
	Forced       bool           `json:"forced"`
	Total        string         `json:"total"`
	Expected     string         `json:"expected"`
	Outcome      string         `gorm:"index" json:"outcome"`
	DealsCreated int            `json:"deals_created"`
	Message      string         `json:"message,omitempty"`
	Errors       datatypes.JSON `json:"errors"`
	CreatedAt    time.Time      `json:"created_at"`
}
