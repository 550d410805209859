package services

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"monster-league-system/logger"
	"monster-league-system/models"
)

// WalletService serves the user-facing wallet and reward-pack reads. Writes
// go through the claim transaction; this service never mutates balances.
type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// GetUserWallet returns the coin balance and unopened reward-pack count for
// the authenticated user. Users without a wallet row simply have zero coins.
func (s *WalletService) GetUserWallet(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var wallet models.UserWallet
	err := s.DB.Where("user_id = ?", userID).First(&wallet).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithComponent("wallet").WithError(err).Errorf("wallet fetch failed for user %s", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch wallet"})
	}

	var unopenedPacks int64
	if err := s.DB.Model(&models.RewardPack{}).
		Where("user_id = ? AND opened_at IS NULL", userID).
		Count(&unopenedPacks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count packs"})
	}

	return c.JSON(fiber.Map{
		"user_id":        userID,
		"coin_balance":   wallet.CoinBalance,
		"unopened_packs": unopenedPacks,
	})
}

// GetUserPacks lists the user's reward packs, optionally filtered by opened
// state: opened=all (default), opened=true, opened=false.
func (s *WalletService) GetUserPacks(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// No opened filter by default ("all").
	query := s.DB.Where("user_id = ?", userID)
	switch strings.ToLower(c.Query("opened")) {
	case "true":
		query = query.Where("opened_at IS NOT NULL")
	case "false":
		query = query.Where("opened_at IS NULL")
	}

	var packs []models.RewardPack
	if err := query.Order("granted_at DESC").Find(&packs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch packs"})
	}
	return c.JSON(packs)
}
