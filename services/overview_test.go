package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"monster-league-system/models"
	"monster-league-system/services"
	"monster-league-system/storage/storagetest"
)

func newOverview(catalog *storagetest.FakeCatalog, metrics *storagetest.FakeMetrics, store *storagetest.FakeStore) *services.OverviewService {
	return services.NewOverviewService(catalog, store, newResynchronizer(catalog, metrics, store))
}

func findObjective(t *testing.T, views []services.ObjectiveView, code string) services.ObjectiveView {
	t.Helper()
	for _, v := range views {
		if v.Code == code {
			return v
		}
	}
	t.Fatalf("objective %s not in overview", code)
	return services.ObjectiveView{}
}

func TestUserObjectivesAssemblesStates(t *testing.T) {
	ctx := context.Background()

	untouched := storagetest.NewDefinition("UNTOUCHED", models.ObjectiveBattleWins, 5)
	started := storagetest.NewDefinition("STARTED", models.ObjectiveBattleWins, 10)
	done := storagetest.NewDefinition("DONE", models.ObjectiveBattleWins, 3)
	claimed := storagetest.NewDefinition("CLAIMED", models.ObjectiveBattleWins, 3)

	catalog := &storagetest.FakeCatalog{
		Definitions: []models.ObjectiveDefinition{untouched, started, done, claimed},
	}
	store := storagetest.NewFakeStore()
	metrics := storagetest.NewFakeMetrics()

	now := time.Now()
	store.SeedProgress(models.ObjectiveProgress{UserID: "user-1", ObjectiveID: started.ID, CurrentValue: 4})
	store.SeedProgress(models.ObjectiveProgress{UserID: "user-1", ObjectiveID: done.ID, CurrentValue: 3, CompletedAt: &now})
	store.SeedProgress(models.ObjectiveProgress{UserID: "user-1", ObjectiveID: claimed.ID, CurrentValue: 3, CompletedAt: &now, RewardClaimedAt: &now})

	overview, err := newOverview(catalog, metrics, store).UserObjectives(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, overview.Objectives, 4)
	require.False(t, overview.SyncedAt.IsZero())

	v := findObjective(t, overview.Objectives, "UNTOUCHED")
	require.Equal(t, models.StateNotStarted, v.State)
	require.False(t, v.Claimable)
	require.Zero(t, v.CurrentValue)

	v = findObjective(t, overview.Objectives, "STARTED")
	require.Equal(t, models.StateInProgress, v.State)
	require.False(t, v.Claimable)
	require.EqualValues(t, 4, v.CurrentValue)
	require.EqualValues(t, 10, v.TargetValue)

	v = findObjective(t, overview.Objectives, "DONE")
	require.Equal(t, models.StateCompleted, v.State)
	require.True(t, v.Claimable)
	require.NotNil(t, v.CompletedAt)

	v = findObjective(t, overview.Objectives, "CLAIMED")
	require.Equal(t, models.StateClaimed, v.State)
	require.False(t, v.Claimable)
	require.NotNil(t, v.RewardClaimedAt)
}

func TestUserObjectivesResyncsBeforeListing(t *testing.T) {
	ctx := context.Background()

	def := storagetest.NewDefinition("OPEN_10_PACKS", models.ObjectiveOpenPacksAny, 10)
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	store := storagetest.NewFakeStore()
	metrics := storagetest.NewFakeMetrics()

	// Stored progress lags the canonical count; the listing must not.
	store.SeedProgress(models.ObjectiveProgress{UserID: "user-1", ObjectiveID: def.ID, CurrentValue: 2})
	metrics.PackOpens["user-1"] = 6

	overview, err := newOverview(catalog, metrics, store).UserObjectives(ctx, "user-1")
	require.NoError(t, err)

	v := findObjective(t, overview.Objectives, "OPEN_10_PACKS")
	require.EqualValues(t, 6, v.CurrentValue)
}

func TestUserObjectivesServesStoredProgressWhenResyncFails(t *testing.T) {
	ctx := context.Background()

	def := storagetest.NewDefinition("OPEN_10_PACKS", models.ObjectiveOpenPacksAny, 10)
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	store := storagetest.NewFakeStore()
	metrics := storagetest.NewFakeMetrics()

	store.SeedProgress(models.ObjectiveProgress{UserID: "user-1", ObjectiveID: def.ID, CurrentValue: 2})
	metrics.PackOpens["user-1"] = 6

	// Writes fail, so the resync aborts; the listing degrades to stored data.
	store.SaveErr = errors.New("read-only replica")

	overview, err := newOverview(catalog, metrics, store).UserObjectives(ctx, "user-1")
	require.NoError(t, err)

	v := findObjective(t, overview.Objectives, "OPEN_10_PACKS")
	require.EqualValues(t, 2, v.CurrentValue)
}

func TestUserObjectivesSetViews(t *testing.T) {
	ctx := context.Background()

	a := storagetest.NewDefinition("A", models.ObjectiveBattleWins, 5)
	b := storagetest.NewDefinition("B", models.ObjectiveDailyLogins, 3)
	set := storagetest.NewSet("STARTER", a, b)

	catalog := &storagetest.FakeCatalog{
		Definitions: []models.ObjectiveDefinition{a, b},
		Sets:        []models.ObjectiveSet{set},
	}
	store := storagetest.NewFakeStore()
	metrics := storagetest.NewFakeMetrics()

	seedCompleted(store, "user-1", a)

	overview, err := newOverview(catalog, metrics, store).UserObjectives(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, overview.Sets, 1)

	sv := overview.Sets[0]
	require.Equal(t, "STARTER", sv.Code)
	require.Equal(t, 1, sv.CompletedCount)
	require.Equal(t, 2, sv.TotalCount)
	require.Equal(t, models.StateInProgress, sv.State)
	require.False(t, sv.Claimable)
	require.Len(t, sv.Members, 2)
	require.Equal(t, "A", sv.Members[0].Code)
	require.True(t, sv.Members[0].Completed)
	require.Equal(t, "B", sv.Members[1].Code)
	require.False(t, sv.Members[1].Completed)
}

func TestUserObjectivesUntouchedSetReadsNotStarted(t *testing.T) {
	ctx := context.Background()

	a := storagetest.NewDefinition("A", models.ObjectiveBattleWins, 5)
	set := storagetest.NewSet("STARTER", a)

	catalog := &storagetest.FakeCatalog{
		Definitions: []models.ObjectiveDefinition{a},
		Sets:        []models.ObjectiveSet{set},
	}
	store := storagetest.NewFakeStore()
	metrics := storagetest.NewFakeMetrics()

	// The aggregation pass inside the resync creates the set row eagerly;
	// with zero members done it must still read as NOT_STARTED.
	overview, err := newOverview(catalog, metrics, store).UserObjectives(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, overview.Sets, 1)
	require.Equal(t, models.StateNotStarted, overview.Sets[0].State)

	row, err := store.GetSet(ctx, "user-1", set.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
}

func TestUserObjectivesClaimableSet(t *testing.T) {
	ctx := context.Background()

	a := storagetest.NewDefinition("A", models.ObjectiveBattleWins, 5)
	set := storagetest.NewSet("STARTER", a)

	catalog := &storagetest.FakeCatalog{
		Definitions: []models.ObjectiveDefinition{a},
		Sets:        []models.ObjectiveSet{set},
	}
	store := storagetest.NewFakeStore()
	metrics := storagetest.NewFakeMetrics()

	seedCompleted(store, "user-1", a)

	overview, err := newOverview(catalog, metrics, store).UserObjectives(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, overview.Sets, 1)

	sv := overview.Sets[0]
	require.Equal(t, models.StateCompleted, sv.State)
	require.True(t, sv.Claimable)
	require.Equal(t, 1, sv.CompletedCount)
}
