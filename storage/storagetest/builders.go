package storagetest

import (
	"github.com/google/uuid"

	"monster-league-system/models"
)

// NewDefinition builds an active coin-rewarded definition with sane defaults.
// Tests tweak fields directly and call ResolveReward when they change the
// reward pair.
func NewDefinition(code string, objType models.ObjectiveType, target int64) models.ObjectiveDefinition {
	def := models.ObjectiveDefinition{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        code,
		Type:        objType,
		TargetValue: target,
		RewardType:  models.RewardTypeCoins,
		RewardValue: "100",
		IsActive:    true,
	}
	def.ResolveReward()
	return def
}

// NewSet builds an active set whose members are the given definitions.
func NewSet(code string, members ...models.ObjectiveDefinition) models.ObjectiveSet {
	set := models.ObjectiveSet{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        code,
		RewardType:  models.RewardTypeCoins,
		RewardValue: "500",
		IsActive:    true,
	}
	for i, def := range members {
		set.Members = append(set.Members, models.ObjectiveSetMember{
			ID:          uuid.NewString(),
			SetID:       set.ID,
			ObjectiveID: def.ID,
			SortOrder:   i,
		})
	}
	set.ResolveReward()
	return set
}
