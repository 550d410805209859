package workers

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"monster-league-system/logger"
	"monster-league-system/models"
	"monster-league-system/services"
)

// ResyncWorker periodically reconciles users whose canonical data changed.
// Deltas keep progress fresh in the common case; this sweep catches events
// that were lost, double-sent, or emitted by subsystems that predate the
// event feed.
type ResyncWorker struct {
	DB     *gorm.DB
	Resync *services.Resynchronizer
}

func NewResyncWorker(db *gorm.DB, resync *services.Resynchronizer) *ResyncWorker {
	return &ResyncWorker{DB: db, Resync: resync}
}

// activeUsersSince returns the distinct users with canonical activity after
// the cursor: packs opened, collection changes, market trades (either side)
// and squad submissions or scoring.
func (w *ResyncWorker) activeUsersSince(ctx context.Context, since time.Time) ([]string, error) {
	var packUsers []string
	if err := w.DB.WithContext(ctx).
		Model(&models.PackOpen{}).
		Where("opened_at > ?", since).
		Distinct().
		Pluck("user_id", &packUsers).Error; err != nil {
		return nil, fmt.Errorf("pack opens: %w", err)
	}

	var collectionUsers []string
	if err := w.DB.WithContext(ctx).
		Model(&models.UserMonster{}).
		Where("acquired_at > ? OR consumed_at > ?", since, since).
		Distinct().
		Pluck("user_id", &collectionUsers).Error; err != nil {
		return nil, fmt.Errorf("collection changes: %w", err)
	}

	var buyers []string
	if err := w.DB.WithContext(ctx).
		Model(&models.MarketTransaction{}).
		Where("executed_at > ?", since).
		Distinct().
		Pluck("buyer_id", &buyers).Error; err != nil {
		return nil, fmt.Errorf("market buys: %w", err)
	}

	var sellers []string
	if err := w.DB.WithContext(ctx).
		Model(&models.MarketTransaction{}).
		Where("executed_at > ?", since).
		Distinct().
		Pluck("seller_id", &sellers).Error; err != nil {
		return nil, fmt.Errorf("market sells: %w", err)
	}

	var squadUsers []string
	if err := w.DB.WithContext(ctx).
		Model(&models.SquadEntry{}).
		Where("submitted_at > ? OR scored_at > ?", since, since).
		Distinct().
		Pluck("user_id", &squadUsers).Error; err != nil {
		return nil, fmt.Errorf("squad entries: %w", err)
	}

	seen := make(map[string]bool)
	var users []string
	for _, group := range [][]string{packUsers, collectionUsers, buyers, sellers, squadUsers} {
		for _, id := range group {
			if id != "" && !seen[id] {
				seen[id] = true
				users = append(users, id)
			}
		}
	}
	return users, nil
}

// PollProgress drives the sweep. The cursor only advances when the whole
// tick succeeds, so failed users are retried on the same window next tick.
func PollProgress(ctx context.Context, worker *ResyncWorker, pollInterval time.Duration) {
	log := logger.WithComponent("resync-worker")
	log.Info("starting periodic progress resync")

	// First pass covers the last hour, in case the service was down.
	lastSyncTime := time.Now().UTC().Add(-1 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("progress resync stopped")
			return
		case <-ticker.C:
			tickStart := time.Now().UTC()

			users, err := worker.activeUsersSince(ctx, lastSyncTime)
			if err != nil {
				log.WithError(err).Error("active user lookup failed")
				continue
			}
			if len(users) == 0 {
				lastSyncTime = tickStart
				continue
			}

			failed := 0
			for _, userID := range users {
				if err := worker.Resync.Resync(ctx, userID); err != nil {
					failed++
					log.WithError(err).Warnf("resync failed for user %s", userID)
				}
			}
			if failed > 0 {
				// Keep the window open so failures retry next tick.
				log.Warnf("resynced %d user(s), %d failed; cursor not advanced", len(users)-failed, failed)
				continue
			}

			lastSyncTime = tickStart
			log.Infof("resynced %d user(s)", len(users))
		}
	}
}
