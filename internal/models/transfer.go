package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransferStatusReceived = "received"
	TransferStatusUsed     = "used"
)

// Transfer is one incoming mobile-money payment, recorded from its
// notification text. UsedAt is set iff Status is TransferStatusUsed.
type Transfer struct {
	TransactionID string          `gorm:"primaryKey;size:64" json:"transaction_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null;index:idx_transfers_lookup,priority:2" json:"amount"`
	Number        string          `gorm:"size:32;not null;index:idx_transfers_lookup,priority:1" json:"number"`
	Status        string          `gorm:"size:16;not null;index:idx_transfers_lookup,priority:3" json:"status"`
	ReceivedAt    time.Time       `gorm:"not null;index" json:"received_at"`
	UsedAt        *time.Time      `json:"used_at,omitempty"`
	RawMessage    string          `gorm:"type:text" json:"raw_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Transfer) TableName() string { return "transfers" }

func (t *Transfer) IsUsed() bool {
	return t.Status == TransferStatusUsed
}
