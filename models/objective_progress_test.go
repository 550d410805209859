package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"monster-league-system/models"
)

func TestObjectiveProgressState(t *testing.T) {
	now := time.Now()

	t.Run("nil row", func(t *testing.T) {
		var p *models.ObjectiveProgress
		require.Equal(t, models.StateNotStarted, p.State())
	})

	t.Run("zero value", func(t *testing.T) {
		p := &models.ObjectiveProgress{}
		require.Equal(t, models.StateNotStarted, p.State())
	})

	t.Run("in progress", func(t *testing.T) {
		p := &models.ObjectiveProgress{CurrentValue: 3}
		require.Equal(t, models.StateInProgress, p.State())
	})

	t.Run("completed", func(t *testing.T) {
		p := &models.ObjectiveProgress{CurrentValue: 10, CompletedAt: &now}
		require.Equal(t, models.StateCompleted, p.State())
	})

	t.Run("claimed wins over completed", func(t *testing.T) {
		p := &models.ObjectiveProgress{CurrentValue: 10, CompletedAt: &now, RewardClaimedAt: &now}
		require.Equal(t, models.StateClaimed, p.State())
	})

	t.Run("completed wins over value", func(t *testing.T) {
		// Resync can drop the value after completion; the state holds.
		p := &models.ObjectiveProgress{CurrentValue: 0, CompletedAt: &now}
		require.Equal(t, models.StateCompleted, p.State())
	})
}

func TestObjectiveSetProgressState(t *testing.T) {
	now := time.Now()

	t.Run("nil row", func(t *testing.T) {
		var p *models.ObjectiveSetProgress
		require.Equal(t, models.StateNotStarted, p.State())
	})

	t.Run("existing row, not completed", func(t *testing.T) {
		p := &models.ObjectiveSetProgress{}
		require.Equal(t, models.StateInProgress, p.State())
	})

	t.Run("completed", func(t *testing.T) {
		p := &models.ObjectiveSetProgress{IsCompleted: true, CompletedAt: &now}
		require.Equal(t, models.StateCompleted, p.State())
	})

	t.Run("claimed", func(t *testing.T) {
		p := &models.ObjectiveSetProgress{IsCompleted: true, CompletedAt: &now, RewardClaimedAt: &now}
		require.Equal(t, models.StateClaimed, p.State())
	})
}
