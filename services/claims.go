package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"monster-league-system/logger"
	"monster-league-system/models"
)

// coinPrinter renders grouped amounts ("12,500 coins") for claim receipts.
var coinPrinter = message.NewPrinter(language.English)

// ClaimResult is the receipt returned to the caller after a successful claim.
type ClaimResult struct {
	Kind        models.RewardKind `json:"-"`
	RewardType  models.RewardType `json:"reward_type"`
	Coins       int64             `json:"coins,omitempty"`
	PackCode    string            `json:"pack_code,omitempty"`
	Token       string            `json:"token,omitempty"`
	Description string            `json:"description"`
}

// RewardIssuer performs at-most-once reward claims. The completion check,
// the claimed stamp and the grant all run inside one transaction under a
// row lock, so two concurrent claims cannot both pay out.
type RewardIssuer struct {
	catalog Catalog
	runner  TxRunner
}

func NewRewardIssuer(catalog Catalog, runner TxRunner) *RewardIssuer {
	return &RewardIssuer{catalog: catalog, runner: runner}
}

// Claim issues the reward for a completed objective.
// Returns ErrObjectiveNotFound, ErrNotCompletedYet or ErrAlreadyClaimed on
// the expected failure paths; any grant failure rolls the stamp back.
func (s *RewardIssuer) Claim(ctx context.Context, userID, objectiveCode string) (*ClaimResult, error) {
	def, err := s.catalog.DefinitionByCode(ctx, objectiveCode)
	if err != nil {
		return nil, fmt.Errorf("load definition %s: %w", objectiveCode, err)
	}
	if def == nil {
		return nil, ErrObjectiveNotFound
	}

	var result *ClaimResult
	err = s.runner.InTx(ctx, func(tx Tx) error {
		progress, err := tx.Progress().GetForUpdate(ctx, userID, def.ID)
		if err != nil {
			return err
		}
		// No row means no recorded progress at all.
		if progress == nil || progress.CompletedAt == nil {
			return ErrNotCompletedYet
		}
		if progress.RewardClaimedAt != nil {
			return ErrAlreadyClaimed
		}

		now := time.Now()
		progress.RewardClaimedAt = &now
		if err := tx.Progress().Save(ctx, progress); err != nil {
			return err
		}

		result, err = grantReward(ctx, tx, userID, def.Reward, models.PackSourceObjective, def.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("claims").Infof("user %s claimed objective %s: %s", userID, def.Code, result.Description)
	return result, nil
}

// ClaimSet issues the bonus reward for a completed objective set. Same
// contract as Claim, with ErrSetNotFound / ErrSetNotCompleted.
func (s *RewardIssuer) ClaimSet(ctx context.Context, userID, setCode string) (*ClaimResult, error) {
	set, err := s.catalog.SetByCode(ctx, setCode)
	if err != nil {
		return nil, fmt.Errorf("load set %s: %w", setCode, err)
	}
	if set == nil {
		return nil, ErrSetNotFound
	}

	var result *ClaimResult
	err = s.runner.InTx(ctx, func(tx Tx) error {
		progress, err := tx.Progress().GetSetForUpdate(ctx, userID, set.ID)
		if err != nil {
			return err
		}
		if progress == nil || !progress.IsCompleted {
			return ErrSetNotCompleted
		}
		if progress.RewardClaimedAt != nil {
			return ErrAlreadyClaimed
		}

		now := time.Now()
		progress.RewardClaimedAt = &now
		if err := tx.Progress().SaveSet(ctx, progress); err != nil {
			return err
		}

		result, err = grantReward(ctx, tx, userID, set.Reward, models.PackSourceSet, set.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("claims").Infof("user %s claimed set %s: %s", userID, set.Code, result.Description)
	return result, nil
}

// grantReward applies the reward side effects inside the claim transaction.
// The switch is exhaustive over RewardKind; an unknown kind fails the claim
// (and rolls back the stamp) rather than silently granting nothing.
func grantReward(ctx context.Context, tx Tx, userID string, reward models.Reward, source models.RewardPackSource, sourceRef string) (*ClaimResult, error) {
	switch reward.Kind {
	case models.RewardKindCoins:
		if reward.Coins > 0 {
			if err := tx.Wallet().IncrementBalance(ctx, userID, reward.Coins); err != nil {
				return nil, fmt.Errorf("credit wallet: %w", err)
			}
		}
		return &ClaimResult{
			Kind:        models.RewardKindCoins,
			RewardType:  models.RewardTypeCoins,
			Coins:       reward.Coins,
			Description: coinPrinter.Sprintf("%d coins", reward.Coins),
		}, nil

	case models.RewardKindPack:
		if _, err := tx.Packs().CreateRewardPack(ctx, userID, reward.PackCode, source, sourceRef); err != nil {
			return nil, fmt.Errorf("grant pack: %w", err)
		}
		return &ClaimResult{
			Kind:        models.RewardKindPack,
			RewardType:  models.RewardTypePack,
			PackCode:    reward.PackCode,
			Description: fmt.Sprintf("1x %s pack", reward.PackCode),
		}, nil

	case models.RewardKindSpecial:
		// Special rewards are fulfilled out of band; the claim only records
		// the token for downstream systems.
		return &ClaimResult{
			Kind:        models.RewardKindSpecial,
			RewardType:  models.RewardTypeSpecial,
			Token:       reward.Token,
			Description: fmt.Sprintf("special reward %s", reward.Token),
		}, nil
	}

	return nil, fmt.Errorf("unknown reward kind %d", reward.Kind)
}
