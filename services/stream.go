package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"monster-league-system/logger"
	"monster-league-system/models"
)

// StreamService pushes "you can claim something" events to connected clients
// over SSE. It polls the progress tables on a short ticker; completion stamps
// are monotonic, so a completed_at cursor never misses or repeats an event.
type StreamService struct {
	DB *gorm.DB
}

func NewStreamService(db *gorm.DB) *StreamService {
	return &StreamService{DB: db}
}

type claimableEvent struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	RewardType  models.RewardType `json:"reward_type"`
	CompletedAt time.Time         `json:"completed_at"`
}

// StreamClaimable streams newly claimable objectives and sets for the
// authenticated user until the client disconnects.
func (s *StreamService) StreamClaimable(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	log := logger.WithComponent("stream")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		// Start both cursors at the latest completion so only events after
		// connect are streamed; the listing endpoint covers the backlog.
		objectiveCursor := s.latestObjectiveCompletion(userID)
		setCursor := s.latestSetCompletion(userID)

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				wroteObjectives, err := s.pushObjectiveEvents(w, userID, &objectiveCursor)
				if err != nil {
					log.WithError(err).Warnf("objective poll failed for user %s", userID)
				}
				wroteSets, err := s.pushSetEvents(w, userID, &setCursor)
				if err != nil {
					log.WithError(err).Warnf("set poll failed for user %s", userID)
				}

				if wroteObjectives || wroteSets {
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}

func (s *StreamService) latestObjectiveCompletion(userID string) time.Time {
	var latest models.ObjectiveProgress
	err := s.DB.
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		First(&latest).Error
	if err == nil && latest.CompletedAt != nil {
		return *latest.CompletedAt
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithComponent("stream").WithError(err).Warnf("cursor init failed for user %s", userID)
	}
	return time.Time{}
}

func (s *StreamService) latestSetCompletion(userID string) time.Time {
	var latest models.ObjectiveSetProgress
	err := s.DB.
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		First(&latest).Error
	if err == nil && latest.CompletedAt != nil {
		return *latest.CompletedAt
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithComponent("stream").WithError(err).Warnf("set cursor init failed for user %s", userID)
	}
	return time.Time{}
}

func (s *StreamService) pushObjectiveEvents(w *bufio.Writer, userID string, cursor *time.Time) (bool, error) {
	var rows []models.ObjectiveProgress
	err := s.DB.
		Where("user_id = ? AND reward_claimed_at IS NULL AND completed_at > ?", userID, *cursor).
		Order("completed_at ASC").
		Find(&rows).Error
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	*cursor = *rows[len(rows)-1].CompletedAt

	wrote := false
	for _, row := range rows {
		var def models.ObjectiveDefinition
		if err := s.DB.First(&def, "id = ?", row.ObjectiveID).Error; err != nil {
			// Definition removed since completion; nothing to announce.
			continue
		}
		payload, _ := json.Marshal(claimableEvent{
			Code:        def.Code,
			Name:        def.Name,
			RewardType:  def.RewardType,
			CompletedAt: *row.CompletedAt,
		})
		fmt.Fprintf(w, "event: objective_claimable\ndata: %s\n\n", payload)
		wrote = true
	}
	return wrote, nil
}

func (s *StreamService) pushSetEvents(w *bufio.Writer, userID string, cursor *time.Time) (bool, error) {
	var rows []models.ObjectiveSetProgress
	err := s.DB.
		Where("user_id = ? AND reward_claimed_at IS NULL AND completed_at > ?", userID, *cursor).
		Order("completed_at ASC").
		Find(&rows).Error
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	*cursor = *rows[len(rows)-1].CompletedAt

	wrote := false
	for _, row := range rows {
		var set models.ObjectiveSet
		if err := s.DB.First(&set, "id = ?", row.SetID).Error; err != nil {
			continue
		}
		payload, _ := json.Marshal(claimableEvent{
			Code:        set.Code,
			Name:        set.Name,
			RewardType:  set.RewardType,
			CompletedAt: *row.CompletedAt,
		})
		fmt.Fprintf(w, "event: set_claimable\ndata: %s\n\n", payload)
		wrote = true
	}
	return wrote, nil
}
