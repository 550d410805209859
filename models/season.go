package models

import "time"

// Season scopes seasonal objectives and the fantasy-scoring metrics.
// The season scheduler flips IsActive as the window opens and closes.
type Season struct {
	ID       string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code     string    `gorm:"uniqueIndex;not null" json:"code"` // e.g. "S03"
	Name     string    `gorm:"not null" json:"name"`
	StartsAt time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null;index" json:"ends_at"`
	IsActive bool      `gorm:"default:false;index" json:"is_active"`

	Timestamps
}

// Contains reports whether t falls inside the season window.
func (s *Season) Contains(t time.Time) bool {
	return !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}
