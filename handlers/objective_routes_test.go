package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"monster-league-system/handlers"
	"monster-league-system/models"
	"monster-league-system/services"
	"monster-league-system/storage/storagetest"
)

type objectiveRoutesFixture struct {
	app     *fiber.App
	catalog *storagetest.FakeCatalog
	store   *storagetest.FakeStore
	metrics *storagetest.FakeMetrics
}

func newObjectiveRoutesFixture(t *testing.T) *objectiveRoutesFixture {
	t.Helper()

	catalog := &storagetest.FakeCatalog{}
	store := storagetest.NewFakeStore()
	metrics := storagetest.NewFakeMetrics()

	sets := services.NewSetAggregator(catalog, store, store)
	resync := services.NewResynchronizer(catalog, metrics, store, sets)
	overview := services.NewOverviewService(catalog, store, resync)
	issuer := services.NewRewardIssuer(catalog, store)

	// Wallet, stream and auth back routes this fixture never exercises.
	wallet := services.NewWalletService(nil)
	stream := services.NewStreamService(nil)
	authClient := services.NewAuthClient("http://auth.local", "service-token")

	app := fiber.New()
	handlers.SetupObjectiveRoutes(app, overview, issuer, resync, wallet, stream, authClient)

	return &objectiveRoutesFixture{app: app, catalog: catalog, store: store, metrics: metrics}
}

func (f *objectiveRoutesFixture) request(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestGetObjectivesRequiresUserContext(t *testing.T) {
	f := newObjectiveRoutesFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/user/objectives", nil)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetObjectivesReturnsOverview(t *testing.T) {
	f := newObjectiveRoutesFixture(t)

	def := storagetest.NewDefinition("WIN_5_BATTLES", models.ObjectiveBattleWins, 5)
	f.catalog.Definitions = []models.ObjectiveDefinition{def}
	f.store.SeedProgress(models.ObjectiveProgress{UserID: "user-1", ObjectiveID: def.ID, CurrentValue: 2})

	resp := f.request(t, http.MethodGet, "/user/objectives")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var overview services.Overview
	decodeBody(t, resp, &overview)
	require.Len(t, overview.Objectives, 1)
	require.Equal(t, "WIN_5_BATTLES", overview.Objectives[0].Code)
	require.EqualValues(t, 2, overview.Objectives[0].CurrentValue)
	require.Equal(t, models.StateInProgress, overview.Objectives[0].State)
}

func TestClaimObjectiveStatusMapping(t *testing.T) {
	f := newObjectiveRoutesFixture(t)

	def := storagetest.NewDefinition("WIN_5_BATTLES", models.ObjectiveBattleWins, 5)
	f.catalog.Definitions = []models.ObjectiveDefinition{def}

	t.Run("unknown objective is 404", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/user/objectives/NO_SUCH/claim")
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("uncompleted objective is 409", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/user/objectives/WIN_5_BATTLES/claim")
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("completed objective pays out", func(t *testing.T) {
		now := time.Now()
		f.store.SeedProgress(models.ObjectiveProgress{
			UserID:       "user-1",
			ObjectiveID:  def.ID,
			CurrentValue: 5,
			CompletedAt:  &now,
		})

		resp := f.request(t, http.MethodPost, "/user/objectives/WIN_5_BATTLES/claim")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var result services.ClaimResult
		decodeBody(t, resp, &result)
		require.Equal(t, models.RewardTypeCoins, result.RewardType)
		require.EqualValues(t, 100, result.Coins)
		require.EqualValues(t, 100, f.store.WalletBalance("user-1"))
	})

	t.Run("second claim is 409", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/user/objectives/WIN_5_BATTLES/claim")
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
		require.EqualValues(t, 100, f.store.WalletBalance("user-1"))
	})
}

func TestClaimResyncsBeforeValidating(t *testing.T) {
	f := newObjectiveRoutesFixture(t)

	// The user opened their tenth pack moments ago; no delta event has landed
	// and no progress row exists yet. The claim route must still honor it.
	def := storagetest.NewDefinition("OPEN_10_PACKS", models.ObjectiveOpenPacksAny, 10)
	f.catalog.Definitions = []models.ObjectiveDefinition{def}
	f.metrics.PackOpens["user-1"] = 12

	resp := f.request(t, http.MethodPost, "/user/objectives/OPEN_10_PACKS/claim")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result services.ClaimResult
	decodeBody(t, resp, &result)
	require.EqualValues(t, 100, result.Coins)

	progress, err := f.store.Get(context.Background(), "user-1", def.ID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	require.EqualValues(t, 10, progress.CurrentValue)
	require.NotNil(t, progress.RewardClaimedAt)
}

func TestClaimObjectiveStorageFaultIs500(t *testing.T) {
	f := newObjectiveRoutesFixture(t)

	def := storagetest.NewDefinition("WIN_5_BATTLES", models.ObjectiveBattleWins, 5)
	f.catalog.Definitions = []models.ObjectiveDefinition{def}
	f.store.TxErr = errors.New("connection lost")

	resp := f.request(t, http.MethodPost, "/user/objectives/WIN_5_BATTLES/claim")
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	require.Equal(t, "claim failed", body["error"])
}

func TestClaimSetStatusMapping(t *testing.T) {
	f := newObjectiveRoutesFixture(t)

	a := storagetest.NewDefinition("A", models.ObjectiveBattleWins, 5)
	set := storagetest.NewSet("STARTER", a)
	f.catalog.Definitions = []models.ObjectiveDefinition{a}
	f.catalog.Sets = []models.ObjectiveSet{set}

	t.Run("unknown set is 404", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/user/objective-sets/NO_SUCH/claim")
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("incomplete set is 409", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/user/objective-sets/STARTER/claim")
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("completed set pays out", func(t *testing.T) {
		now := time.Now()
		f.store.SeedSetProgress(models.ObjectiveSetProgress{
			UserID:      "user-1",
			SetID:       set.ID,
			IsCompleted: true,
			CompletedAt: &now,
		})

		resp := f.request(t, http.MethodPost, "/user/objective-sets/STARTER/claim")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var result services.ClaimResult
		decodeBody(t, resp, &result)
		require.EqualValues(t, 500, result.Coins)
	})
}
