package storage

import (
	"context"

	"gorm.io/gorm"

	"monster-league-system/models"
	"monster-league-system/services"
)

// MetricRepository computes the canonical counts resync reconciles against.
// The tables are owned by other league subsystems (packs, collection,
// market, fantasy); everything here is read-only aggregation.
type MetricRepository struct {
	db *gorm.DB
}

var _ services.MetricSource = (*MetricRepository)(nil)

func NewMetricRepository(db *gorm.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

func (r *MetricRepository) PackOpenCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PackOpen{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// ActiveCollectionSize counts owned copies that have not been consumed by
// crafting. Collection objectives can regress when copies are burned; resync
// reflects that, completion stamps do not.
func (r *MetricRepository) ActiveCollectionSize(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserMonster{}).
		Where("user_id = ? AND consumed_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *MetricRepository) RareOrBetterCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserMonster{}).
		Joins("JOIN monsters ON monsters.id = user_monsters.monster_id").
		Where("user_monsters.user_id = ? AND user_monsters.consumed_at IS NULL", userID).
		Where("monsters.rarity IN ?", models.RaritiesAtOrAbove(models.RarityRare)).
		Count(&count).Error
	return count, err
}

func (r *MetricRepository) SeasonFantasyPoints(ctx context.Context, userID, seasonCode string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.SquadEntry{}).
		Where("user_id = ? AND season_code = ? AND scored_at IS NOT NULL", userID, seasonCode).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

func (r *MetricRepository) ScoredGameweekCount(ctx context.Context, userID, seasonCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SquadEntry{}).
		Where("user_id = ? AND season_code = ? AND scored_at IS NOT NULL", userID, seasonCode).
		Count(&count).Error
	return count, err
}

func (r *MetricRepository) MarketBuyCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MarketTransaction{}).
		Where("buyer_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *MetricRepository) MarketSellCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MarketTransaction{}).
		Where("seller_id = ?", userID).
		Count(&count).Error
	return count, err
}
