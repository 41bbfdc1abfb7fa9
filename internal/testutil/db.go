package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"payment-confirmation-backend/internal/config"
	"payment-confirmation-backend/internal/models"
)

// NewDB opens a migrated SQLite database in a temp dir. One connection is
// shared so concurrent tests interleave statements instead of hitting
// SQLITE_BUSY.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.URL = filepath.Join(t.TempDir(), "payments.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	cfg.DB.MaxOpenConns = 1

	db, err := config.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() { _ = config.CloseDB(db) })
	return db
}

// SeedTransfer stores a received transfer.
func SeedTransfer(t *testing.T, db *gorm.DB, id, number, amount string, receivedAt time.Time) models.Transfer {
	t.Helper()

	tr := models.Transfer{
		TransactionID: id,
		Amount:        decimal.RequireFromString(amount),
		Number:        number,
		Status:        models.TransferStatusReceived,
		ReceivedAt:    receivedAt.UTC(),
	}
	require.NoError(t, db.Create(&tr).Error)
	return tr
}
