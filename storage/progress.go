package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"monster-league-system/models"
	"monster-league-system/services"
)

// ProgressRepository persists objective and set progress rows. The ForUpdate
// reads take SELECT ... FOR UPDATE row locks; callers must hold a
// transaction (see Store.InTx) or the lock is released immediately.
type ProgressRepository struct {
	db *gorm.DB
}

var _ services.ProgressStore = (*ProgressRepository)(nil)

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	var progress models.ObjectiveProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND objective_id = ?", userID, objectiveID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.ObjectiveProgress, error) {
	var rows []models.ObjectiveProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProgressRepository) GetForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	var progress models.ObjectiveProgress
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND objective_id = ?", userID, objectiveID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetOrCreateForUpdate seeds the row if missing, then re-reads it under a
// row lock. The ON CONFLICT DO NOTHING insert makes concurrent first-touch
// races safe: both writers end up locking the same row.
func (r *ProgressRepository) GetOrCreateForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	seed := models.ObjectiveProgress{
		ID:          uuid.NewString(),
		UserID:      userID,
		ObjectiveID: objectiveID,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "objective_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return nil, fmt.Errorf("seed progress row: %w", err)
	}

	progress, err := r.GetForUpdate(ctx, userID, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("lock progress row: %w", err)
	}
	if progress == nil {
		return nil, fmt.Errorf("progress row vanished after seed (user=%s objective=%s)", userID, objectiveID)
	}
	return progress, nil
}

func (r *ProgressRepository) Save(ctx context.Context, progress *models.ObjectiveProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *ProgressRepository) GetSet(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	var progress models.ObjectiveSetProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND set_id = ?", userID, setID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) ListSetsByUser(ctx context.Context, userID string) ([]models.ObjectiveSetProgress, error) {
	var rows []models.ObjectiveSetProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProgressRepository) GetSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	var progress models.ObjectiveSetProgress
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND set_id = ?", userID, setID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) GetOrCreateSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	seed := models.ObjectiveSetProgress{
		ID:     uuid.NewString(),
		UserID: userID,
		SetID:  setID,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "set_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return nil, fmt.Errorf("seed set progress row: %w", err)
	}

	progress, err := r.GetSetForUpdate(ctx, userID, setID)
	if err != nil {
		return nil, fmt.Errorf("lock set progress row: %w", err)
	}
	if progress == nil {
		return nil, fmt.Errorf("set progress row vanished after seed (user=%s set=%s)", userID, setID)
	}
	return progress, nil
}

func (r *ProgressRepository) SaveSet(ctx context.Context, progress *models.ObjectiveSetProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}
