package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"payment-confirmation-backend/internal/models"
)

type AutoCheckRepository struct {
	db *gorm.DB
}

func NewAutoCheckRepository(db *gorm.DB) *AutoCheckRepository {
	return &AutoCheckRepository{db: db}
}

// Upsert inserts the entry, or re-activates the existing entry with the
// same (number, amount, label). The stored row is returned.
func (r *AutoCheckRepository) Upsert(ctx context.Context, e *models.AutoCheckEntry) (*models.AutoCheckEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	db := r.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}, {Name: "amount"}, {Name: "label"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
	}).Create(e).Error
	if err != nil {
		return nil, errors.Wrap(err, "upsert auto-check entry")
	}

	var stored models.AutoCheckEntry
	err = db.Where("number = ? AND amount = ? AND label = ?", e.Number, e.Amount, e.Label).
		Take(&stored).Error
	if err != nil {
		return nil, errors.Wrap(err, "reload auto-check entry")
	}
	return &stored, nil
}

func (r *AutoCheckRepository) Get(ctx context.Context, id uuid.UUID) (*models.AutoCheckEntry, error) {
	var e models.AutoCheckEntry
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "auto-check entry %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get auto-check entry %s", id)
	}
	return &e, nil
}

func (r *AutoCheckRepository) List(ctx context.Context, activeOnly bool) ([]models.AutoCheckEntry, error) {
	var entries []models.AutoCheckEntry
	query := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Find(&entries).Error
	return entries, errors.Wrap(err, "list auto-check entries")
}

func (r *AutoCheckRepository) Toggle(ctx context.Context, id uuid.UUID) (*models.AutoCheckEntry, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AutoCheckEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     gorm.Expr("NOT active"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, errors.Wrapf(result.Error, "toggle auto-check entry %s", id)
	}
	if result.RowsAffected == 0 {
		return nil, errors.Wrapf(ErrNotFound, "auto-check entry %s", id)
	}
	return r.Get(ctx, id)
}

func (r *AutoCheckRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AutoCheckEntry{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "delete auto-check entry %s", id)
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "auto-check entry %s", id)
	}
	return nil
}

func (r *AutoCheckRepository) TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.AutoCheckEntry{}).
		Where("id = ?", id).
		Update("last_checked_at", at).Error
	return errors.Wrapf(err, "touch auto-check entry %s", id)
}

func (r *AutoCheckRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AutoCheckEntry{}).
		Where("active = ?", true).
		Count(&count).Error
	return count, errors.Wrap(err, "count active auto-check entries")
}
