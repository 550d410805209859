package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"monster-league-system/models"
	"monster-league-system/services"
)

// PackRepository grants reward packs into the user's inventory. Runs inside
// the claim transaction; a failed insert rolls the whole claim back.
type PackRepository struct {
	db *gorm.DB
}

var _ services.PackInventory = (*PackRepository)(nil)

func NewPackRepository(db *gorm.DB) *PackRepository {
	return &PackRepository{db: db}
}

func (r *PackRepository) CreateRewardPack(ctx context.Context, userID, packCode string, source models.RewardPackSource, sourceRef string) (*models.RewardPack, error) {
	pack := &models.RewardPack{
		ID:         uuid.NewString(),
		UserID:     userID,
		PackCode:   packCode,
		SourceType: source,
		SourceRef:  sourceRef,
	}
	if err := r.db.WithContext(ctx).Create(pack).Error; err != nil {
		return nil, err
	}
	return pack, nil
}
