package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"monster-league-system/models"
)

func TestSeasonContains(t *testing.T) {
	starts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ends := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	season := &models.Season{Code: "S03", StartsAt: starts, EndsAt: ends}

	require.True(t, season.Contains(starts), "window start is inclusive")
	require.True(t, season.Contains(starts.Add(24*time.Hour)))
	require.False(t, season.Contains(ends), "window end is exclusive")
	require.False(t, season.Contains(starts.Add(-time.Second)))
	require.False(t, season.Contains(ends.Add(time.Hour)))
}
