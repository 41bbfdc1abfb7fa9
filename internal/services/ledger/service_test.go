package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-confirmation-backend/internal/models"
	"payment-confirmation-backend/internal/repository"
	"payment-confirmation-backend/internal/services/matching"
	"payment-confirmation-backend/internal/services/notification"
	"payment-confirmation-backend/internal/testutil"
)

const sampleMessage = "Vous avez recu 500 FCFA du 55713380, nouveau solde 2500 FCFA. Trans ID: ABC123"

type fixture struct {
	service   *LedgerService
	transfers *repository.TransferRepository
	autoCheck *repository.AutoCheckRepository
	runs      *repository.RunRepository
}

func newFixture(t *testing.T) fixture {
	db := testutil.NewDB(t)
	f := fixture{
		transfers: repository.NewTransferRepository(db),
		autoCheck: repository.NewAutoCheckRepository(db),
		runs:      repository.NewRunRepository(db),
	}
	f.service = NewLedgerService(f.transfers, f.autoCheck, f.runs)
	return f
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tr, err := f.service.Ingest(ctx, sampleMessage)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", tr.TransactionID)
	assert.Equal(t, "55713380", tr.Number)
	assert.True(t, decimal.NewFromInt(500).Equal(tr.Amount))
	assert.Equal(t, models.TransferStatusReceived, tr.Status)
	assert.Nil(t, tr.UsedAt)

	stored, err := f.service.GetTransfer(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusReceived, stored.Status)
	assert.Equal(t, sampleMessage, stored.RawMessage)
}

func TestIngest_Unparseable(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ingest(context.Background(), "Votre solde est de 2500 FCFA")
	assert.ErrorIs(t, err, notification.ErrUnparseable)

	page, err := f.service.ListTransfers(context.Background(), repository.TransferFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestIngest_DuplicateKeepsExisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Ingest(ctx, sampleMessage)
	require.NoError(t, err)

	res, err := matching.NewEngine(f.transfers).Verify(ctx, "55713380", decimal.NewFromInt(500))
	require.NoError(t, err)
	require.Equal(t, matching.OutcomeMatchedNowUsed, res.Outcome)

	_, err = f.service.Ingest(ctx, "Vous avez recu 900 FCFA du 60000000, Trans ID: ABC123")
	assert.ErrorIs(t, err, ErrDuplicateTransfer)

	stored, err := f.service.GetTransfer(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusUsed, stored.Status)
	assert.Equal(t, "55713380", stored.Number)
	assert.True(t, decimal.NewFromInt(500).Equal(stored.Amount))
}

func TestIngest_HyphenatedIDsSharingPrefix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.service.Ingest(ctx, "Vous avez recu 500 FCFA du 55713380, Trans ID: OM-0001")
	require.NoError(t, err)
	assert.Equal(t, "OM-0001", first.TransactionID)

	second, err := f.service.Ingest(ctx, "Vous avez recu 500 FCFA du 55713380, Trans ID: OM-0002")
	require.NoError(t, err)
	assert.Equal(t, "OM-0002", second.TransactionID)

	_, err = f.service.Ingest(ctx, "Vous avez recu 500 FCFA du 55713380, Trans ID: OM-0001")
	assert.ErrorIs(t, err, ErrDuplicateTransfer)

	page, err := f.service.ListTransfers(ctx, repository.TransferFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestIngest_RejectsSubCentAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ingest(context.Background(), "Vous avez recu 500.555 FCFA du 55713380, Trans ID: ABC123")
	assert.ErrorIs(t, err, notification.ErrUnparseable)

	_, err = f.service.GetTransfer(context.Background(), "ABC123")
	assert.ErrorIs(t, err, ErrTransferNotFound)
}

func TestCreate_DuplicateKeyIsTranslated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.SeedTransfer(t, f.transfers.DB(), "ABC123", "55713380", "500", time.Now())

	err := f.transfers.Create(ctx, &models.Transfer{
		TransactionID: "ABC123",
		Amount:        decimal.NewFromInt(700),
		Number:        "1",
		Status:        models.TransferStatusReceived,
		ReceivedAt:    time.Now().UTC(),
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetTransfer_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.GetTransfer(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTransferNotFound)
}

func TestListTransfers_Pagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		testutil.SeedTransfer(t, f.transfers.DB(), fmt.Sprintf("TX%d", i), "55713380", "500", base.Add(time.Duration(i)*time.Minute))
	}
	testutil.SeedTransfer(t, f.transfers.DB(), "OTHER", "70000000", "500", base)

	page, err := f.service.ListTransfers(ctx, repository.TransferFilter{Number: "55713380", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "TX4", page.Items[0].TransactionID)
	assert.Equal(t, "TX3", page.Items[1].TransactionID)
	assert.True(t, page.HasMore)

	var seen []string
	for _, it := range page.Items {
		seen = append(seen, it.TransactionID)
	}
	for page.HasMore {
		page, err = f.service.ListTransfers(ctx, repository.TransferFilter{Number: "55713380", Limit: 2, Cursor: page.NextCursor})
		require.NoError(t, err)
		for _, it := range page.Items {
			seen = append(seen, it.TransactionID)
		}
	}
	assert.Equal(t, []string{"TX4", "TX3", "TX2", "TX1", "TX0"}, seen)

	_, err = f.service.ListTransfers(ctx, repository.TransferFilter{Cursor: "%%%"})
	assert.ErrorIs(t, err, repository.ErrInvalidCursor)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now().UTC()
	testutil.SeedTransfer(t, f.transfers.DB(), "A", "55713380", "500", now)
	testutil.SeedTransfer(t, f.transfers.DB(), "B", "55713380", "1000", now)
	testutil.SeedTransfer(t, f.transfers.DB(), "C", "70000000", "250.50", now)

	_, err := matching.NewEngine(f.transfers).Verify(ctx, "55713380", decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, err = f.autoCheck.Upsert(ctx, &models.AutoCheckEntry{Number: "55713380", Amount: decimal.NewFromInt(500), Label: "demo", Active: true})
	require.NoError(t, err)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.True(t, decimal.RequireFromString("1750.50").Equal(stats.TotalAmount), "total %s", stats.TotalAmount)
	assert.Equal(t, int64(2), stats.ReceivedCount)
	assert.True(t, decimal.RequireFromString("750.50").Equal(stats.ReceivedSum), "received %s", stats.ReceivedSum)
	assert.Equal(t, int64(1), stats.UsedCount)
	assert.True(t, decimal.NewFromInt(1000).Equal(stats.UsedSum))
	assert.Equal(t, int64(1), stats.ActiveAutoChecks)
	assert.Nil(t, stats.LastRun)
}
