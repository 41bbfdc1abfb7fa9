package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AutoCheckEntry registers a (number, amount) pair that the auto-checker
// verifies on every pass.
type AutoCheckEntry struct {
	ID            uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	Number        string          `gorm:"size:32;not null;uniqueIndex:idx_auto_check_key,priority:1" json:"number"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null;uniqueIndex:idx_auto_check_key,priority:2" json:"amount"`
	Label         string          `gorm:"size:128;not null;default:'';uniqueIndex:idx_auto_check_key,priority:3" json:"label"`
	Active        bool            `gorm:"not null;default:true;index" json:"active"`
	LastCheckedAt *time.Time      `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (AutoCheckEntry) TableName() string { return "auto_check_entries" }
