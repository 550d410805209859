package services

import (
	"context"
	"fmt"
	"time"

	"monster-league-system/logger"
	"monster-league-system/models"
)

// ObjectiveView is one objective merged with the caller's progress, shaped
// for the public listing endpoint.
type ObjectiveView struct {
	Code            string               `json:"code"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	IconURL         string               `json:"icon_url,omitempty"`
	Type            models.ObjectiveType `json:"type"`
	SeasonCode      string               `json:"season_code,omitempty"`
	TargetValue     int64                `json:"target_value"`
	CurrentValue    int64                `json:"current_value"`
	State           models.ProgressState `json:"state"`
	RewardType      models.RewardType    `json:"reward_type"`
	Claimable       bool                 `json:"claimable"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	RewardClaimedAt *time.Time           `json:"reward_claimed_at,omitempty"`
}

// SetMemberView is a member objective's completion state within a set.
type SetMemberView struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// SetView is one objective set merged with the caller's progress.
type SetView struct {
	Code            string               `json:"code"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	State           models.ProgressState `json:"state"`
	RewardType      models.RewardType    `json:"reward_type"`
	Claimable       bool                 `json:"claimable"`
	CompletedCount  int                  `json:"completed_count"`
	TotalCount      int                  `json:"total_count"`
	Members         []SetMemberView      `json:"members"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	RewardClaimedAt *time.Time           `json:"reward_claimed_at,omitempty"`
}

// Overview is the full objectives screen for one user.
type Overview struct {
	Objectives []ObjectiveView `json:"objectives"`
	Sets       []SetView       `json:"sets"`
	SyncedAt   time.Time       `json:"synced_at"`
}

// OverviewService assembles the objectives screen. It resyncs first so the
// numbers reflect canonical state, but a failed resync degrades to serving
// the last stored values rather than a 500 — claims re-validate inside their
// own transaction anyway.
type OverviewService struct {
	catalog  Catalog
	progress ProgressStore
	resync   *Resynchronizer
}

func NewOverviewService(catalog Catalog, progress ProgressStore, resync *Resynchronizer) *OverviewService {
	return &OverviewService{catalog: catalog, progress: progress, resync: resync}
}

func (s *OverviewService) UserObjectives(ctx context.Context, userID string) (*Overview, error) {
	if err := s.resync.Resync(ctx, userID); err != nil {
		logger.WithComponent("overview").WithError(err).
			Warnf("resync failed for user %s, serving stored progress", userID)
	}

	defs, err := s.catalog.ActiveDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	rows, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	byObjective := make(map[string]*models.ObjectiveProgress, len(rows))
	for i := range rows {
		byObjective[rows[i].ObjectiveID] = &rows[i]
	}

	overview := &Overview{
		Objectives: make([]ObjectiveView, 0, len(defs)),
		SyncedAt:   time.Now(),
	}
	defNames := make(map[string]string, len(defs))
	completedDefs := make(map[string]bool)

	for i := range defs {
		def := &defs[i]
		defNames[def.ID] = def.Name

		view := ObjectiveView{
			Code:        def.Code,
			Name:        def.Name,
			Description: def.Description,
			IconURL:     def.IconURL,
			Type:        def.Type,
			SeasonCode:  def.SeasonCode,
			TargetValue: def.TargetValue,
			State:       models.StateNotStarted,
			RewardType:  def.RewardType,
		}
		if progress := byObjective[def.ID]; progress != nil {
			view.CurrentValue = progress.CurrentValue
			view.State = progress.State()
			view.CompletedAt = progress.CompletedAt
			view.RewardClaimedAt = progress.RewardClaimedAt
			view.Claimable = view.State == models.StateCompleted
			if progress.CompletedAt != nil {
				completedDefs[def.ID] = true
			}
		}
		overview.Objectives = append(overview.Objectives, view)
	}

	sets, err := s.catalog.ActiveSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sets: %w", err)
	}
	setRows, err := s.progress.ListSetsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load set progress: %w", err)
	}
	bySet := make(map[string]*models.ObjectiveSetProgress, len(setRows))
	for i := range setRows {
		bySet[setRows[i].SetID] = &setRows[i]
	}

	overview.Sets = make([]SetView, 0, len(sets))
	for i := range sets {
		set := &sets[i]
		view := SetView{
			Code:        set.Code,
			Name:        set.Name,
			Description: set.Description,
			State:       models.StateNotStarted,
			RewardType:  set.RewardType,
			TotalCount:  len(set.Members),
			Members:     make([]SetMemberView, 0, len(set.Members)),
		}
		for _, member := range set.Members {
			done := completedDefs[member.ObjectiveID]
			if done {
				view.CompletedCount++
			}
			view.Members = append(view.Members, SetMemberView{
				Code:      memberCode(defs, member.ObjectiveID),
				Name:      defNames[member.ObjectiveID],
				Completed: done,
			})
		}
		if progress := bySet[set.ID]; progress != nil {
			view.State = progress.State()
			view.CompletedAt = progress.CompletedAt
			view.RewardClaimedAt = progress.RewardClaimedAt
			view.Claimable = view.State == models.StateCompleted
		}
		// Aggregation creates rows eagerly; an untouched set is NOT_STARTED.
		if view.State == models.StateInProgress && view.CompletedCount == 0 {
			view.State = models.StateNotStarted
		}
		overview.Sets = append(overview.Sets, view)
	}

	return overview, nil
}

func memberCode(defs []models.ObjectiveDefinition, objectiveID string) string {
	for i := range defs {
		if defs[i].ID == objectiveID {
			return defs[i].Code
		}
	}
	return ""
}
