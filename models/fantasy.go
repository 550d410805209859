package models

import "time"

// SquadEntry is one user's fantasy squad submission for one gameweek.
// Points are written by the scoring subsystem once the gameweek resolves.
// The objectives engine reads two aggregates: total points per season and
// the number of distinct gameweeks with a submitted entry.
type SquadEntry struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string    `gorm:"uniqueIndex:idx_user_gameweek;not null" json:"user_id"`
	SeasonCode  string    `gorm:"uniqueIndex:idx_user_gameweek;index;not null" json:"season_code"`
	Gameweek    int       `gorm:"uniqueIndex:idx_user_gameweek;not null" json:"gameweek"`
	Points      int64     `gorm:"default:0" json:"points"`
	SubmittedAt time.Time `gorm:"autoCreateTime" json:"submitted_at"`
	ScoredAt    *time.Time `json:"scored_at,omitempty"`
}
