package autocheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-confirmation-backend/internal/metrics"
	"payment-confirmation-backend/internal/models"
	"payment-confirmation-backend/internal/repository"
	"payment-confirmation-backend/internal/services/matching"
)

const DefaultRunHistory = 20

var ErrEntryNotFound = errors.New("auto-check entry not found")

type Verifier interface {
	Verify(ctx context.Context, number string, amount decimal.Decimal) (matching.Result, error)
}

type EntryStore interface {
	Upsert(ctx context.Context, e *models.AutoCheckEntry) (*models.AutoCheckEntry, error)
	List(ctx context.Context, activeOnly bool) ([]models.AutoCheckEntry, error)
	Toggle(ctx context.Context, id uuid.UUID) (*models.AutoCheckEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error
}

type RunStore interface {
	Create(ctx context.Context, run *models.AutoCheckRun) error
	ListRecent(ctx context.Context, limit int) ([]models.AutoCheckRun, error)
}

// Checker re-verifies registered (number, amount) pairs and keeps one run
// record per pass.
type Checker struct {
	verifier Verifier
	entries  EntryStore
	runs     RunStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewChecker(verifier Verifier, entries EntryStore, runs RunStore, m *metrics.Metrics, logger *slog.Logger) *Checker {
	return &Checker{
		verifier: verifier,
		entries:  entries,
		runs:     runs,
		metrics:  m,
		logger:   logger.With("component", "autocheck"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *Checker) AddEntry(ctx context.Context, number string, amount decimal.Decimal, label string) (*models.AutoCheckEntry, error) {
	if err := matching.ValidateInput(number, amount); err != nil {
		return nil, err
	}
	return c.entries.Upsert(ctx, &models.AutoCheckEntry{
		Number: number,
		Amount: amount,
		Label:  strings.TrimSpace(label),
		Active: true,
	})
}

func (c *Checker) ListEntries(ctx context.Context) ([]models.AutoCheckEntry, error) {
	return c.entries.List(ctx, false)
}

func (c *Checker) ToggleEntry(ctx context.Context, id uuid.UUID) (*models.AutoCheckEntry, error) {
	e, err := c.entries.Toggle(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrapf(ErrEntryNotFound, "id %s", id)
	}
	return e, err
}

func (c *Checker) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	err := c.entries.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Wrapf(ErrEntryNotFound, "id %s", id)
	}
	return err
}

func (c *Checker) ListRuns(ctx context.Context, limit int) ([]models.AutoCheckRun, error) {
	if limit <= 0 {
		limit = DefaultRunHistory
	}
	return c.runs.ListRecent(ctx, limit)
}

// Run performs one pass over the active entries. A failing entry is
// recorded in the run and does not stop the pass. The returned error is
// only about persisting the run record itself.
func (c *Checker) Run(ctx context.Context, trigger string) (*models.AutoCheckRun, error) {
	run := &models.AutoCheckRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: c.now(),
	}
	c.logger.InfoContext(ctx, "auto-check run started", "run_id", run.ID, "trigger", trigger)

	entryErrors := []models.EntryError{}
	entries, err := c.entries.List(ctx, true)
	if err != nil {
		run.ErrorText = err.Error()
		run.Status = models.RunStatusFailed
	} else {
		for i := range entries {
			matched, err := c.checkEntry(ctx, &entries[i])
			run.EntriesChecked++
			if matched {
				run.MatchedCount++
			}
			if err != nil {
				run.FailedCount++
				entryErrors = append(entryErrors, models.EntryError{
					EntryID: entries[i].ID.String(),
					Number:  entries[i].Number,
					Amount:  entries[i].Amount.String(),
					Error:   err.Error(),
				})
				c.logger.WarnContext(ctx, "auto-check entry failed",
					"run_id", run.ID, "entry_id", entries[i].ID, "error", err)
				continue
			}
		}
		run.Status = runStatus(run.EntriesChecked, run.FailedCount)
	}

	raw, _ := json.Marshal(entryErrors)
	run.EntryErrors = raw
	if len(entryErrors) > 0 {
		msgs := make([]string, 0, len(entryErrors))
		for _, e := range entryErrors {
			msgs = append(msgs, fmt.Sprintf("%s/%s: %s", e.Number, e.Amount, e.Error))
		}
		run.ErrorText = strings.Join(msgs, "; ")
	}

	completed := c.now()
	run.CompletedAt = &completed
	c.metrics.ObserveAutoCheckRun(run.Status, completed.Sub(run.StartedAt))

	// The pass may have been cancelled mid-way; its record is still kept.
	if err := c.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		c.logger.ErrorContext(ctx, "auto-check run not recorded", "run_id", run.ID, "error", err)
		return run, err
	}

	c.logger.InfoContext(ctx, "auto-check run finished",
		"run_id", run.ID,
		"status", run.Status,
		"checked", run.EntriesChecked,
		"matched", run.MatchedCount,
		"failed", run.FailedCount,
	)
	return run, nil
}

func (c *Checker) checkEntry(ctx context.Context, e *models.AutoCheckEntry) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic: %v", r)
		}
	}()

	res, err := c.verifier.Verify(ctx, e.Number, e.Amount)
	if err != nil {
		return false, err
	}
	c.metrics.ObserveVerification("autocheck", string(res.Outcome))

	// The transfer is already consumed at this point; report it even when
	// the bookkeeping below fails.
	if err := c.entries.TouchLastChecked(ctx, e.ID, c.now()); err != nil {
		return res.Matched(), err
	}
	return res.Matched(), nil
}

func runStatus(checked, failed int) string {
	switch {
	case failed == 0:
		return models.RunStatusSuccess
	case failed < checked:
		return models.RunStatusPartial
	default:
		return models.RunStatusFailed
	}
}
