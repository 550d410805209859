package services

import (
	"context"
	"fmt"
	"time"

	"monster-league-system/logger"
)

// SetAggregator derives set completion from member objective completion.
// It never looks at currentValue, only at completedAt stamps, so it composes
// with both the delta and the resync paths.
type SetAggregator struct {
	catalog  Catalog
	progress ProgressStore
	runner   TxRunner
}

func NewSetAggregator(catalog Catalog, progress ProgressStore, runner TxRunner) *SetAggregator {
	return &SetAggregator{catalog: catalog, progress: progress, runner: runner}
}

// Recompute re-evaluates every active set for the user. Completion is
// sticky: a set that once completed stays completed even if membership
// changes afterwards. A set with no members can never complete.
func (a *SetAggregator) Recompute(ctx context.Context, userID string) error {
	sets, err := a.catalog.ActiveSets(ctx)
	if err != nil {
		return fmt.Errorf("load sets: %w", err)
	}
	if len(sets) == 0 {
		return nil
	}

	rows, err := a.progress.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	completed := make(map[string]bool, len(rows))
	for i := range rows {
		if rows[i].CompletedAt != nil {
			completed[rows[i].ObjectiveID] = true
		}
	}

	for i := range sets {
		set := &sets[i]
		allDone := len(set.Members) > 0
		for _, member := range set.Members {
			if !completed[member.ObjectiveID] {
				allDone = false
				break
			}
		}
		if err := a.apply(ctx, userID, set.ID, set.Code, allDone); err != nil {
			return fmt.Errorf("aggregate set %s: %w", set.Code, err)
		}
	}
	return nil
}

func (a *SetAggregator) apply(ctx context.Context, userID, setID, setCode string, allDone bool) error {
	return a.runner.InTx(ctx, func(tx Tx) error {
		progress, err := tx.Progress().GetOrCreateSetForUpdate(ctx, userID, setID)
		if err != nil {
			return err
		}

		// Sticky: never un-complete, never re-stamp.
		if progress.IsCompleted || !allDone {
			return nil
		}

		progress.IsCompleted = true
		now := time.Now()
		progress.CompletedAt = &now
		logger.WithComponent("progress").Infof("user %s completed objective set %s", userID, setCode)
		return tx.Progress().SaveSet(ctx, progress)
	})
}
