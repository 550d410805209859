package models

import (
	"strconv"
	"strings"
)

// ObjectiveType ties a definition to the event kind that advances it and,
// for metric-backed types, to the canonical count the resynchronizer reads.
type ObjectiveType string

const (
	// Metric-backed types — resync recomputes these from canonical stores.
	ObjectiveOpenPacksAny       ObjectiveType = "OPEN_PACKS_ANY"
	ObjectiveCollectionSize     ObjectiveType = "COLLECTION_SIZE"
	ObjectiveRareCollection     ObjectiveType = "COLLECT_RARE_MONSTERS"
	ObjectiveSeasonPoints       ObjectiveType = "SEASON_FANTASY_POINTS"
	ObjectiveScoredGameweeks    ObjectiveType = "SCORED_GAMEWEEKS"
	ObjectiveMarketBuys         ObjectiveType = "MARKET_BUYS"
	ObjectiveMarketSells        ObjectiveType = "MARKET_SELLS"

	// Event-only types — advanced exclusively by recorded deltas.
	ObjectiveBattleWins  ObjectiveType = "BATTLE_WINS"
	ObjectiveDailyLogins ObjectiveType = "DAILY_LOGINS"
)

// Valid reports whether t is one of the known objective types.
func (t ObjectiveType) Valid() bool {
	switch t {
	case ObjectiveOpenPacksAny, ObjectiveCollectionSize, ObjectiveRareCollection,
		ObjectiveSeasonPoints, ObjectiveScoredGameweeks, ObjectiveMarketBuys,
		ObjectiveMarketSells, ObjectiveBattleWins, ObjectiveDailyLogins:
		return true
	}
	return false
}

// RewardType is the stored discriminator for a definition's reward payload.
type RewardType string

const (
	RewardTypeCoins   RewardType = "coins"
	RewardTypePack    RewardType = "pack"
	RewardTypeSpecial RewardType = "special"
)

// Valid reports whether t is a known reward discriminator.
func (t RewardType) Valid() bool {
	switch t {
	case RewardTypeCoins, RewardTypePack, RewardTypeSpecial:
		return true
	}
	return false
}

// RewardKind is the resolved variant of a reward payload.
type RewardKind int

const (
	RewardKindCoins RewardKind = iota
	RewardKindPack
	RewardKindSpecial
)

// Reward is the reward_type/reward_value pair resolved into a tagged union.
// Exactly one of Coins / PackCode / Token is meaningful, per Kind.
type Reward struct {
	Kind     RewardKind
	Coins    int64
	PackCode string
	Token    string
}

// ParseReward resolves the stored pair once, at catalog load time.
// Coin values that fail to parse or are non-positive resolve to zero:
// the claim still succeeds, it just grants nothing.
func ParseReward(rewardType RewardType, rewardValue string) Reward {
	value := strings.TrimSpace(rewardValue)
	switch rewardType {
	case RewardTypePack:
		return Reward{Kind: RewardKindPack, PackCode: value}
	case RewardTypeSpecial:
		return Reward{Kind: RewardKindSpecial, Token: value}
	default:
		amount, err := strconv.ParseInt(value, 10, 64)
		if err != nil || amount < 0 {
			amount = 0
		}
		return Reward{Kind: RewardKindCoins, Coins: amount}
	}
}

// ObjectiveDefinition is immutable-per-season configuration: what to count,
// how far, and what completing it pays out. Owned by the catalog; progress
// tracking never mutates it.
type ObjectiveDefinition struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // e.g. "OPEN_10_PACKS"
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IconURL     string `gorm:"type:text" json:"icon_url"`

	Type        ObjectiveType `gorm:"type:varchar(48);index;not null" json:"type"`
	TargetValue int64         `gorm:"not null" json:"target_value"`

	RewardType  RewardType `gorm:"type:varchar(16);not null" json:"reward_type"`
	RewardValue string     `gorm:"not null" json:"reward_value"`

	IsActive   bool   `gorm:"default:true;index" json:"is_active"`
	SeasonCode string `gorm:"index" json:"season_code"` // "" = evergreen
	SortOrder  int    `gorm:"default:0" json:"sort_order"`

	// Resolved once when the catalog loads the row.
	Reward Reward `gorm:"-" json:"-"`

	Timestamps
}

// ResolveReward fills the parsed reward union from the stored pair.
func (d *ObjectiveDefinition) ResolveReward() {
	d.Reward = ParseReward(d.RewardType, d.RewardValue)
}

// MetricSeason returns the season a season-scoped metric should count under:
// the definition's own code when set, otherwise the given fallback
// (normally the currently active season).
func (d *ObjectiveDefinition) MetricSeason(fallback string) string {
	if d.SeasonCode != "" {
		return d.SeasonCode
	}
	return fallback
}
