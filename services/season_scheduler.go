package services

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"monster-league-system/logger"
	"monster-league-system/models"
)

// StartSeasonScheduler flips seasons as their windows open and close, so
// season-scoped objectives follow the calendar without an admin having to
// call ActivateSeason at midnight.
func (s *CatalogAdminService) StartSeasonScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	log := logger.WithComponent("season-scheduler")

	// Every minute: close expired seasons, open the one whose window
	// contains now. Definitions and sets scoped to a season follow it.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()
			changed := false

			var expired []models.Season
			if err := s.DB.Where("is_active = ? AND ends_at <= ?", true, now).
				Find(&expired).Error; err != nil {
				log.WithError(err).Error("expired season lookup failed")
				return
			}
			for i := range expired {
				season := &expired[i]
				err := s.DB.Transaction(func(tx *gorm.DB) error {
					return s.closeSeason(tx, season)
				})
				if err != nil {
					log.WithError(err).Errorf("failed to close season %s", season.Code)
					continue
				}
				changed = true
				log.Infof("season %s closed", season.Code)
			}

			var next models.Season
			err := s.DB.Where("is_active = ? AND starts_at <= ? AND ends_at > ?", false, now, now).
				Order("starts_at DESC").
				First(&next).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				log.WithError(err).Error("next season lookup failed")
			}
			if err == nil {
				err = s.DB.Transaction(func(tx *gorm.DB) error {
					return s.openSeason(tx, &next)
				})
				if err != nil {
					log.WithError(err).Errorf("failed to open season %s", next.Code)
				} else {
					changed = true
					log.Infof("season %s opened", next.Code)
				}
			}

			if changed {
				s.bustCache()
			}
		}),
	)
}

// openSeason makes next the active season, retiring whichever season was
// active before, and activates the definitions and sets scoped to it.
func (s *CatalogAdminService) openSeason(tx *gorm.DB, next *models.Season) error {
	var current []models.Season
	if err := tx.Where("is_active = ? AND id <> ?", true, next.ID).Find(&current).Error; err != nil {
		return err
	}
	for i := range current {
		if err := s.closeSeason(tx, &current[i]); err != nil {
			return err
		}
	}

	if err := tx.Model(next).Update("is_active", true).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.ObjectiveDefinition{}).Where("season_code = ?", next.Code).
		Update("is_active", true).Error; err != nil {
		return err
	}
	return tx.Model(&models.ObjectiveSet{}).Where("season_code = ?", next.Code).
		Update("is_active", true).Error
}

// closeSeason deactivates the season and everything scoped to it. Completed
// objectives stay claimable; they only stop tracking and listing.
func (s *CatalogAdminService) closeSeason(tx *gorm.DB, season *models.Season) error {
	if err := tx.Model(season).Update("is_active", false).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.ObjectiveDefinition{}).Where("season_code = ?", season.Code).
		Update("is_active", false).Error; err != nil {
		return err
	}
	return tx.Model(&models.ObjectiveSet{}).Where("season_code = ?", season.Code).
		Update("is_active", false).Error
}
