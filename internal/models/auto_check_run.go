package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunTriggerStartup  = "startup"
	RunTriggerSchedule = "schedule"
	RunTriggerManual   = "manual"
)

const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

type AutoCheckRun struct {
	ID             uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	Trigger        string         `gorm:"size:16" json:"trigger"`
	EntriesChecked int            `json:"entries_checked"`
	MatchedCount   int            `json:"matched_count"`
	FailedCount    int            `json:"failed_count"`
	ErrorText      string         `gorm:"type:text" json:"error_text,omitempty"`
	EntryErrors    datatypes.JSON `json:"entry_errors,omitempty"`
	Status         string         `gorm:"size:16;index" json:"status"`
	StartedAt      time.Time      `gorm:"index" json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (AutoCheckRun) TableName() string { return "auto_check_runs" }

// EntryError is the per-entry failure stored in AutoCheckRun.EntryErrors.
type EntryError struct {
	EntryID string `json:"entry_id"`
	Number  string `json:"number"`
	Amount  string `json:"amount"`
	Error   string `json:"error"`
}
