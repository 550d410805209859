package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"monster-league-system/logger"
	"monster-league-system/models"
)

// Resynchronizer is the self-healing path. Instead of trusting accumulated
// deltas it recounts each metric-backed objective from the canonical tables
// and overwrites currentValue with the result. Event-only objectives
// (battle wins, daily logins) have no canonical source and are left alone.
type Resynchronizer struct {
	catalog Catalog
	metrics MetricSource
	runner  TxRunner
	sets    *SetAggregator
	log     *logrus.Entry
}

func NewResynchronizer(catalog Catalog, metrics MetricSource, runner TxRunner, sets *SetAggregator) *Resynchronizer {
	return &Resynchronizer{
		catalog: catalog,
		metrics: metrics,
		runner:  runner,
		sets:    sets,
		log:     logger.WithComponent("resync"),
	}
}

// metricKey memoizes metric reads within one pass, so ten collection-size
// objectives cost one count query, not ten.
type metricKey struct {
	objType models.ObjectiveType
	season  string
}

// Resync reconciles every active definition for the user against canonical
// counts. A failing metric query skips the definitions that depend on it and
// never aborts the pass; storage failures do abort, since nothing else will
// succeed either.
func (r *Resynchronizer) Resync(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	defs, err := r.catalog.ActiveDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load definitions: %w", err)
	}

	values := make(map[metricKey]int64)
	failed := make(map[metricKey]bool)

	currentSeason := ""
	season, err := r.catalog.CurrentSeason(ctx)
	if err != nil {
		// Pinned seasonal definitions still resolve their own code. Unpinned
		// ones cannot tell which rows to count, so they sit this pass out
		// rather than reading season "" and zeroing live progress.
		r.log.WithError(err).Warn("current season lookup failed, skipping unpinned seasonal objectives")
		failed[metricKey{objType: models.ObjectiveSeasonPoints, season: ""}] = true
		failed[metricKey{objType: models.ObjectiveScoredGameweeks, season: ""}] = true
	} else if season != nil {
		currentSeason = season.Code
	}

	for i := range defs {
		def := &defs[i]
		key := metricKey{objType: def.Type, season: def.MetricSeason(currentSeason)}

		if failed[key] {
			continue
		}
		value, ok := values[key]
		if !ok {
			var backed bool
			value, backed, err = r.canonicalValue(ctx, userID, def.Type, key.season)
			if err != nil {
				failed[key] = true
				r.log.WithError(err).WithFields(logrus.Fields{
					"user_id": userID,
					"type":    def.Type,
				}).Error("metric query failed, skipping type for this pass")
				continue
			}
			if !backed {
				continue
			}
			values[key] = value
		}

		if err := r.overwrite(ctx, userID, def, value); err != nil {
			return fmt.Errorf("resync objective %s: %w", def.Code, err)
		}
	}

	if err := r.sets.Recompute(ctx, userID); err != nil {
		return fmt.Errorf("recompute sets: %w", err)
	}
	return nil
}

// canonicalValue reads the authoritative count for one objective type.
// backed=false marks event-only types, which resync must not touch.
func (r *Resynchronizer) canonicalValue(ctx context.Context, userID string, objType models.ObjectiveType, season string) (value int64, backed bool, err error) {
	switch objType {
	case models.ObjectiveOpenPacksAny:
		value, err = r.metrics.PackOpenCount(ctx, userID)
	case models.ObjectiveCollectionSize:
		value, err = r.metrics.ActiveCollectionSize(ctx, userID)
	case models.ObjectiveRareCollection:
		value, err = r.metrics.RareOrBetterCount(ctx, userID)
	case models.ObjectiveSeasonPoints:
		value, err = r.metrics.SeasonFantasyPoints(ctx, userID, season)
	case models.ObjectiveScoredGameweeks:
		value, err = r.metrics.ScoredGameweekCount(ctx, userID, season)
	case models.ObjectiveMarketBuys:
		value, err = r.metrics.MarketBuyCount(ctx, userID)
	case models.ObjectiveMarketSells:
		value, err = r.metrics.MarketSellCount(ctx, userID)
	default:
		return 0, false, nil
	}
	return value, true, err
}

// overwrite replaces currentValue with the canonical count, clamped into
// [0, target]. Completion stays sticky: a count that later drops below the
// target lowers the display value but never clears completedAt.
func (r *Resynchronizer) overwrite(ctx context.Context, userID string, def *models.ObjectiveDefinition, canonical int64) error {
	return r.runner.InTx(ctx, func(tx Tx) error {
		progress, err := tx.Progress().GetOrCreateForUpdate(ctx, userID, def.ID)
		if err != nil {
			return err
		}

		clamped := canonical
		if clamped < 0 {
			clamped = 0
		}
		if clamped > def.TargetValue {
			clamped = def.TargetValue
		}

		firstCross := progress.CompletedAt == nil && clamped >= def.TargetValue
		if progress.CurrentValue == clamped && !firstCross {
			// Already in sync; skip the write.
			return nil
		}

		progress.CurrentValue = clamped
		if firstCross {
			now := time.Now()
			progress.CompletedAt = &now
			r.log.Infof("user %s completed objective %s via resync", userID, def.Code)
		}

		return tx.Progress().Save(ctx, progress)
	})
}
