package models

import "time"

// MonsterRarity orders monster tiers; "rare or better" objectives count
// everything from rare upward.
type MonsterRarity string

const (
	RarityCommon    MonsterRarity = "common"
	RarityUncommon  MonsterRarity = "uncommon"
	RarityRare      MonsterRarity = "rare"
	RarityEpic      MonsterRarity = "epic"
	RarityLegendary MonsterRarity = "legendary"
)

var rarityOrder = []MonsterRarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}

// RaritiesAtOrAbove lists the tiers at or above the given threshold, in
// catalog order. Unknown thresholds yield nil (matches nothing).
func RaritiesAtOrAbove(threshold MonsterRarity) []MonsterRarity {
	for i, r := range rarityOrder {
		if r == threshold {
			return rarityOrder[i:]
		}
	}
	return nil
}

// Monster is the collectible card template. Owned by the collection
// subsystem; read here only for rarity aggregation.
type Monster struct {
	ID      string        `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code    string        `gorm:"uniqueIndex;not null" json:"code"`
	Name    string        `gorm:"not null" json:"name"`
	Rarity  MonsterRarity `gorm:"type:varchar(16);index;not null" json:"rarity"`
	ImageURL string       `gorm:"type:text" json:"image_url"`

	Timestamps
}

// UserMonster is one owned copy of a monster. ConsumedAt marks copies burned
// by crafting/upgrades; consumed copies drop out of the active collection.
type UserMonster struct {
	ID         string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID     string     `gorm:"index;not null" json:"user_id"`
	MonsterID  string     `gorm:"index;not null" json:"monster_id"`
	AcquiredAt time.Time  `gorm:"autoCreateTime" json:"acquired_at"`
	ConsumedAt *time.Time `gorm:"index" json:"consumed_at,omitempty"`
}

// PackOpen records one pack opened by a user. Written by the pack-opening
// subsystem after its own commit; the objectives engine only counts rows.
type PackOpen struct {
	ID       string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID   string    `gorm:"index;not null" json:"user_id"`
	PackCode string    `gorm:"index;not null" json:"pack_code"`
	OpenedAt time.Time `gorm:"autoCreateTime;index" json:"opened_at"`
}
