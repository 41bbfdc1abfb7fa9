package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"payment-confirmation-backend/internal/models"
	"payment-confirmation-backend/internal/repository"
	"payment-confirmation-backend/internal/services/notification"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

var (
	ErrDuplicateTransfer = errors.New("transfer already recorded")
	ErrTransferNotFound  = errors.New("transfer not found")
)

type LedgerService struct {
	transfers  *repository.TransferRepository
	autoChecks *repository.AutoCheckRepository
	runs       *repository.RunRepository
	now        func() time.Time
}

func NewLedgerService(
	transfers *repository.TransferRepository,
	autoChecks *repository.AutoCheckRepository,
	runs *repository.RunRepository,
) *LedgerService {
	return &LedgerService{
		transfers:  transfers,
		autoChecks: autoChecks,
		runs:       runs,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ingest parses a notification and records the transfer as received.
// Unparseable text yields notification.ErrUnparseable; a known transaction
// id yields ErrDuplicateTransfer and the stored transfer is left as is.
func (s *LedgerService) Ingest(ctx context.Context, text string) (*models.Transfer, error) {
	n, err := notification.Parse(text)
	if err != nil {
		return nil, err
	}

	exists, err := s.transfers.Exists(ctx, n.TransactionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateTransfer, "transaction id %s", n.TransactionID)
	}

	tr := &models.Transfer{
		TransactionID: n.TransactionID,
		Amount:        n.Amount,
		Number:        n.Number,
		Status:        models.TransferStatusReceived,
		ReceivedAt:    s.now(),
		RawMessage:    strings.TrimSpace(text),
	}
	if err := s.transfers.Create(ctx, tr); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Wrapf(ErrDuplicateTransfer, "transaction id %s", n.TransactionID)
		}
		return nil, err
	}
	return tr, nil
}

func (s *LedgerService) GetTransfer(ctx context.Context, transactionID string) (*models.Transfer, error) {
	tr, err := s.transfers.GetByID(ctx, transactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrapf(ErrTransferNotFound, "transaction id %s", transactionID)
	}
	return tr, err
}

type TransferPage struct {
	Items      []models.Transfer `json:"items"`
	NextCursor string            `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

func (s *LedgerService) ListTransfers(ctx context.Context, f repository.TransferFilter) (TransferPage, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}

	items, next, hasMore, err := s.transfers.List(ctx, f)
	if err != nil {
		return TransferPage{}, err
	}
	if items == nil {
		items = []models.Transfer{}
	}
	return TransferPage{Items: items, NextCursor: next, HasMore: hasMore}, nil
}

type Stats struct {
	Total       int64           `json:"total"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	ReceivedCount int64           `json:"received_count"`
	ReceivedSum   decimal.Decimal `json:"received_sum"`

	UsedCount int64           `json:"used_count"`
	UsedSum   decimal.Decimal `json:"used_sum"`

	ActiveAutoChecks int64                `json:"active_auto_checks"`
	LastRun          *models.AutoCheckRun `json:"last_run"`
}

func (s *LedgerService) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, err := s.transfers.StatsByStatus(ctx)
	if err != nil {
		return stats, err
	}
	for _, r := range rows {
		stats.Total += r.Count
		stats.TotalAmount = stats.TotalAmount.Add(r.Sum)

		switch r.Status {
		case models.TransferStatusReceived:
			stats.ReceivedCount = r.Count
			stats.ReceivedSum = r.Sum
		case models.TransferStatusUsed:
			stats.UsedCount = r.Count
			stats.UsedSum = r.Sum
		}
	}

	if stats.ActiveAutoChecks, err = s.autoChecks.CountActive(ctx); err != nil {
		return stats, err
	}
	if stats.LastRun, err = s.runs.Latest(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}
