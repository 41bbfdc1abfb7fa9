package matching

import (
	"context"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"payment-confirmation-backend/internal/models"
)

type Outcome string

const (
	OutcomeMatchedNowUsed Outcome = "matched_now_used"
	OutcomeAlreadyUsed    Outcome = "already_used"
	OutcomeNotFound       Outcome = "not_found"
)

var ErrInvalidInput = errors.New("invalid verification input")

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Result is the outcome of one verification. Transfer is nil for
// OutcomeNotFound.
type Result struct {
	Outcome  Outcome
	Transfer *models.Transfer
}

func (r Result) Matched() bool {
	return r.Outcome == OutcomeMatchedNowUsed
}

// TransferStore is the subset of the transfer repository the engine needs.
type TransferStore interface {
	FindLatest(ctx context.Context, number string, amount decimal.Decimal, status string) (*models.Transfer, error)
	MarkUsed(ctx context.Context, transactionID string, usedAt time.Time) (bool, error)
	GetByID(ctx context.Context, transactionID string) (*models.Transfer, error)
}

type Engine struct {
	store TransferStore
	now   func() time.Time
}

func NewEngine(store TransferStore) *Engine {
	return &Engine{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func ValidateInput(number string, amount decimal.Decimal) error {
	if !digitsOnly.MatchString(number) {
		return errors.Wrapf(ErrInvalidInput, "number %q must be a non-empty digit string", number)
	}
	if !amount.IsPositive() {
		return errors.Wrapf(ErrInvalidInput, "amount %s must be positive", amount)
	}
	// Stored amounts are numeric(20,2).
	if !amount.Equal(amount.Round(2)) {
		return errors.Wrapf(ErrInvalidInput, "amount %s has more than two decimal places", amount)
	}
	return nil
}

// Verify consumes the latest received transfer for (number, amount).
//
// The received -> used transition is a conditional update, so concurrent
// callers racing for the same transfer see exactly one winner. A loser
// retries with the next candidate; once none is left the latest used
// transfer is reported as already used.
func (e *Engine) Verify(ctx context.Context, number string, amount decimal.Decimal) (Result, error) {
	if err := ValidateInput(number, amount); err != nil {
		return Result{}, err
	}

	for {
		candidate, err := e.store.FindLatest(ctx, number, amount, models.TransferStatusReceived)
		if err != nil {
			return Result{}, err
		}
		if candidate == nil {
			break
		}

		won, err := e.store.MarkUsed(ctx, candidate.TransactionID, e.now())
		if err != nil {
			return Result{}, err
		}
		if !won {
			continue
		}

		used, err := e.store.GetByID(ctx, candidate.TransactionID)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeMatchedNowUsed, Transfer: used}, nil
	}

	used, err := e.store.FindLatest(ctx, number, amount, models.TransferStatusUsed)
	if err != nil {
		return Result{}, err
	}
	if used != nil {
		return Result{Outcome: OutcomeAlreadyUsed, Transfer: used}, nil
	}
	return Result{Outcome: OutcomeNotFound}, nil
}
