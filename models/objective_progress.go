package models

import (
	"time"

	"gorm.io/gorm"
)

// ProgressState is the per-user lifecycle of one objective or set.
// COMPLETED never regresses; CLAIMED is reached exactly once, via a claim.
type ProgressState string

const (
	StateNotStarted ProgressState = "NOT_STARTED"
	StateInProgress ProgressState = "IN_PROGRESS"
	StateCompleted  ProgressState = "COMPLETED"
	StateClaimed    ProgressState = "CLAIMED"
)

// ObjectiveProgress is one user's progress against one objective definition.
// Created lazily on the first delta or first resync; never deleted.
//
// CompletedAt is sticky: once set it survives any later resync, even when the
// canonical count has dropped back below target. RewardClaimedAt is stamped
// at most once, and only after CompletedAt.
type ObjectiveProgress struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string `gorm:"uniqueIndex:idx_user_objective;not null" json:"user_id"`
	ObjectiveID string `gorm:"uniqueIndex:idx_user_objective;not null" json:"objective_id"`

	CurrentValue    int64      `gorm:"default:0" json:"current_value"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	RewardClaimedAt *time.Time `json:"reward_claimed_at,omitempty"`

	Timestamps
}

// State derives the lifecycle state from the row.
func (p *ObjectiveProgress) State() ProgressState {
	switch {
	case p == nil:
		return StateNotStarted
	case p.RewardClaimedAt != nil:
		return StateClaimed
	case p.CompletedAt != nil:
		return StateCompleted
	case p.CurrentValue > 0:
		return StateInProgress
	default:
		return StateNotStarted
	}
}

// ObjectiveSetProgress is one user's completion/claim state for one set.
// IsCompleted mirrors objective-level stickiness: never cleared once true.
type ObjectiveSetProgress struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"uniqueIndex:idx_user_set;not null" json:"user_id"`
	SetID  string `gorm:"uniqueIndex:idx_user_set;not null" json:"set_id"`

	IsCompleted     bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	RewardClaimedAt *time.Time `json:"reward_claimed_at,omitempty"`

	Timestamps
}

// State derives the lifecycle state from the row.
func (p *ObjectiveSetProgress) State() ProgressState {
	switch {
	case p == nil:
		return StateNotStarted
	case p.RewardClaimedAt != nil:
		return StateClaimed
	case p.IsCompleted:
		return StateCompleted
	default:
		return StateInProgress
	}
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
