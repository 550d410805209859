package models

import "time"

// UserWallet is the coin balance row the reward issuer increments.
// The wallet subsystem owns everything else about it.
type UserWallet struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string `gorm:"uniqueIndex;not null" json:"user_id"`
	CoinBalance int64  `gorm:"default:0" json:"coin_balance"`

	Timestamps
}

// RewardPackSource distinguishes where a granted pack came from.
type RewardPackSource string

const (
	PackSourceObjective RewardPackSource = "objective_reward"
	PackSourceSet       RewardPackSource = "set_reward"
)

// RewardPack is a granted, not-yet-opened pack sitting in the user's
// inventory. Created by the reward issuer; the pack-opening subsystem
// stamps OpenedAt when the user opens it.
type RewardPack struct {
	ID         string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID     string           `gorm:"index;not null" json:"user_id"`
	PackCode   string           `gorm:"not null" json:"pack_code"`
	SourceType RewardPackSource `gorm:"type:varchar(32);not null" json:"source_type"`
	SourceRef  string           `gorm:"index" json:"source_ref"` // objective/set definition id
	GrantedAt  time.Time        `gorm:"autoCreateTime" json:"granted_at"`
	OpenedAt   *time.Time       `json:"opened_at,omitempty"`
}
