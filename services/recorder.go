package services

import (
	"context"
	"fmt"
	"time"

	"monster-league-system/logger"
	"monster-league-system/models"
)

// ProgressRecorder applies event-driven deltas. Gameplay services report
// "user did X, N times" and the recorder advances every active definition
// tracking that event kind.
type ProgressRecorder struct {
	catalog Catalog
	runner  TxRunner
	sets    *SetAggregator
}

func NewProgressRecorder(catalog Catalog, runner TxRunner, sets *SetAggregator) *ProgressRecorder {
	return &ProgressRecorder{catalog: catalog, runner: runner, sets: sets}
}

// Record advances every active definition of the given type by amount.
// Each definition is updated in its own transaction under a row lock, then
// set progress is recomputed once.
func (r *ProgressRecorder) Record(ctx context.Context, userID string, objType models.ObjectiveType, amount int64) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if amount < 1 {
		return fmt.Errorf("progress amount must be positive, got %d", amount)
	}

	defs, err := r.catalog.ActiveDefinitionsByType(ctx, objType)
	if err != nil {
		return fmt.Errorf("load definitions for %s: %w", objType, err)
	}
	if len(defs) == 0 {
		// Nothing tracks this event kind right now; not an error.
		return nil
	}

	for i := range defs {
		def := &defs[i]
		if err := r.applyDelta(ctx, userID, def, amount); err != nil {
			return fmt.Errorf("advance objective %s: %w", def.Code, err)
		}
	}

	if err := r.sets.Recompute(ctx, userID); err != nil {
		return fmt.Errorf("recompute sets: %w", err)
	}
	return nil
}

func (r *ProgressRecorder) applyDelta(ctx context.Context, userID string, def *models.ObjectiveDefinition, amount int64) error {
	return r.runner.InTx(ctx, func(tx Tx) error {
		progress, err := tx.Progress().GetOrCreateForUpdate(ctx, userID, def.ID)
		if err != nil {
			return err
		}

		// Completion is sticky: once crossed, deltas no longer apply.
		if progress.CompletedAt != nil {
			return nil
		}

		newValue := progress.CurrentValue + amount
		if newValue > def.TargetValue {
			newValue = def.TargetValue
		}
		progress.CurrentValue = newValue

		if newValue >= def.TargetValue {
			now := time.Now()
			progress.CompletedAt = &now
			logger.WithComponent("progress").Infof("user %s completed objective %s", userID, def.Code)
		}

		return tx.Progress().Save(ctx, progress)
	})
}
