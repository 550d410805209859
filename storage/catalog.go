package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"monster-league-system/models"
	"monster-league-system/services"
)

// CatalogRepository reads objective/set definitions and seasons. Rewards are
// resolved here, once per load, so the engine never re-parses reward_value.
type CatalogRepository struct {
	db *gorm.DB
}

var _ services.Catalog = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ActiveDefinitions(ctx context.Context) ([]models.ObjectiveDefinition, error) {
	var defs []models.ObjectiveDefinition
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, code ASC").
		Find(&defs).Error
	if err != nil {
		return nil, err
	}
	for i := range defs {
		defs[i].ResolveReward()
	}
	return defs, nil
}

func (r *CatalogRepository) ActiveDefinitionsByType(ctx context.Context, objType models.ObjectiveType) ([]models.ObjectiveDefinition, error) {
	var defs []models.ObjectiveDefinition
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND type = ?", true, objType).
		Order("sort_order ASC, code ASC").
		Find(&defs).Error
	if err != nil {
		return nil, err
	}
	for i := range defs {
		defs[i].ResolveReward()
	}
	return defs, nil
}

func (r *CatalogRepository) DefinitionByCode(ctx context.Context, code string) (*models.ObjectiveDefinition, error) {
	var def models.ObjectiveDefinition
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	def.ResolveReward()
	return &def, nil
}

func (r *CatalogRepository) ActiveSets(ctx context.Context) ([]models.ObjectiveSet, error) {
	var sets []models.ObjectiveSet
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("is_active = ?", true).
		Order("sort_order ASC, code ASC").
		Find(&sets).Error
	if err != nil {
		return nil, err
	}
	for i := range sets {
		sets[i].ResolveReward()
	}
	return sets, nil
}

func (r *CatalogRepository) SetByCode(ctx context.Context, code string) (*models.ObjectiveSet, error) {
	var set models.ObjectiveSet
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("code = ?", code).
		First(&set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	set.ResolveReward()
	return &set, nil
}

func (r *CatalogRepository) CurrentSeason(ctx context.Context) (*models.Season, error) {
	var season models.Season
	err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&season).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &season, nil
}
