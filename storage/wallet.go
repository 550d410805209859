package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"monster-league-system/models"
	"monster-league-system/services"
)

// WalletRepository credits coin rewards. The upsert covers users who have
// never touched their wallet: first credit creates the row, later credits
// increment in place. Runs inside the claim transaction.
type WalletRepository struct {
	db *gorm.DB
}

var _ services.Ledger = (*WalletRepository)(nil)

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) IncrementBalance(ctx context.Context, userID string, amount int64) error {
	wallet := models.UserWallet{
		ID:          uuid.NewString(),
		UserID:      userID,
		CoinBalance: amount,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"coin_balance": gorm.Expr("user_wallets.coin_balance + ?", amount),
				"updated_at":   time.Now(),
			}),
		}).
		Create(&wallet).Error
}
