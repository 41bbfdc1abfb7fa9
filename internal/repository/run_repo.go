package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"payment-confirmation-backend/internal/models"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *models.AutoCheckRun) error {
	err := r.db.WithContext(ctx).Create(run).Error
	return errors.Wrap(err, "create auto-check run")
}

func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]models.AutoCheckRun, error) {
	var runs []models.AutoCheckRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, errors.Wrap(err, "list auto-check runs")
}

// Latest returns the most recent run, or nil when none has been recorded.
func (r *RunRepository) Latest(ctx context.Context) (*models.AutoCheckRun, error) {
	var run models.AutoCheckRun
	err := r.db.WithContext(ctx).Order("started_at DESC").Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "latest auto-check run")
	}
	return &run, nil
}
