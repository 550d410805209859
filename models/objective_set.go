package models

// ObjectiveSet bundles a fixed list of objectives; completing every member
// unlocks the set's own reward.
type ObjectiveSet struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IconURL     string `gorm:"type:text" json:"icon_url"`

	RewardType  RewardType `gorm:"type:varchar(16);not null" json:"reward_type"`
	RewardValue string     `gorm:"not null" json:"reward_value"`

	IsActive   bool   `gorm:"default:true;index" json:"is_active"`
	SeasonCode string `gorm:"index" json:"season_code"`
	SortOrder  int    `gorm:"default:0" json:"sort_order"`

	Members []ObjectiveSetMember `gorm:"foreignKey:SetID" json:"members,omitempty"`

	// Resolved once when the catalog loads the row.
	Reward Reward `gorm:"-" json:"-"`

	Timestamps
}

// ResolveReward fills the parsed reward union from the stored pair.
func (s *ObjectiveSet) ResolveReward() {
	s.Reward = ParseReward(s.RewardType, s.RewardValue)
}

// ObjectiveSetMember links one objective definition into a set.
type ObjectiveSetMember struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SetID       string `gorm:"uniqueIndex:idx_set_objective;not null" json:"set_id"`
	ObjectiveID string `gorm:"uniqueIndex:idx_set_objective;not null" json:"objective_id"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
}
