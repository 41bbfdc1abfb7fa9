package repository

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"payment-confirmation-backend/internal/models"
)

type TransferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts a new transfer. An existing transaction id yields
// ErrDuplicate and leaves the stored row untouched.
func (r *TransferRepository) Create(ctx context.Context, t *models.Transfer) error {
	err := r.db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrapf(ErrDuplicate, "transfer %s", t.TransactionID)
	}
	return errors.Wrapf(err, "create transfer %s", t.TransactionID)
}

func (r *TransferRepository) Exists(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "count transfers")
}

func (r *TransferRepository) GetByID(ctx context.Context, transactionID string) (*models.Transfer, error) {
	var t models.Transfer
	err := r.db.WithContext(ctx).First(&t, "transaction_id = ?", transactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "transfer %s", transactionID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get transfer %s", transactionID)
	}
	return &t, nil
}

// FindLatest returns the most recently received transfer with exactly this
// number, amount and status, or nil when there is none.
func (r *TransferRepository) FindLatest(ctx context.Context, number string, amount decimal.Decimal, status string) (*models.Transfer, error) {
	var t models.Transfer
	err := r.db.WithContext(ctx).
		Where("number = ? AND amount = ? AND status = ?", number, amount, status).
		Order("received_at DESC").
		Order("transaction_id DESC").
		Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find latest transfer")
	}
	return &t, nil
}

// MarkUsed flips a received transfer to used. It reports false when the
// row was no longer in the received state, i.e. another caller won.
func (r *TransferRepository) MarkUsed(ctx context.Context, transactionID string, usedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("transaction_id = ? AND status = ?", transactionID, models.TransferStatusReceived).
		Updates(map[string]interface{}{
			"status":  models.TransferStatusUsed,
			"used_at": usedAt,
		})
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "mark transfer %s used", transactionID)
	}
	return result.RowsAffected == 1, nil
}

type TransferFilter struct {
	Status string
	Number string
	Cursor string
	Limit  int
}

// List returns transfers newest first. The cursor is opaque to callers.
func (r *TransferRepository) List(ctx context.Context, f TransferFilter) ([]models.Transfer, string, bool, error) {
	var txs []models.Transfer
	query := r.db.WithContext(ctx).
		Order("received_at DESC").
		Order("transaction_id DESC").
		Limit(f.Limit + 1)

	if f.Status != "" && f.Status != "all" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Number != "" {
		query = query.Where("number = ?", f.Number)
	}
	if f.Cursor != "" {
		at, id, err := decodeCursor(f.Cursor)
		if err != nil {
			return nil, "", false, err
		}
		query = query.Where("received_at < ? OR (received_at = ? AND transaction_id < ?)", at, at, id)
	}

	if err := query.Find(&txs).Error; err != nil {
		return nil, "", false, errors.Wrap(err, "list transfers")
	}

	hasMore := false
	var nextCursor string
	if len(txs) > f.Limit {
		hasMore = true
		txs = txs[:f.Limit]
		last := txs[len(txs)-1]
		nextCursor = encodeCursor(last.ReceivedAt, last.TransactionID)
	}
	return txs, nextCursor, hasMore, nil
}

var ErrInvalidCursor = errors.New("invalid cursor")

func encodeCursor(at time.Time, id string) string {
	raw := at.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", errors.Wrap(ErrInvalidCursor, err.Error())
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", ErrInvalidCursor
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", errors.Wrap(ErrInvalidCursor, err.Error())
	}
	return at.UTC(), id, nil
}

type StatRow struct {
	Status string
	Count  int64
	Sum    decimal.Decimal
}

func (r *TransferRepository) StatsByStatus(ctx context.Context) ([]StatRow, error) {
	var rows []StatRow
	err := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(amount),0) as sum").
		Group("status").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "transfer stats")
}
