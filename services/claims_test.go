package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"monster-league-system/models"
	"monster-league-system/services"
	"monster-league-system/storage/storagetest"
)

func completedDefinition(store *storagetest.FakeStore, code string, rewardType models.RewardType, rewardValue string) models.ObjectiveDefinition {
	def := storagetest.NewDefinition(code, models.ObjectiveBattleWins, 5)
	def.RewardType = rewardType
	def.RewardValue = rewardValue
	def.ResolveReward()
	seedCompleted(store, "user-1", def)
	return def
}

func TestClaimPaysOutExactlyOnce(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "WIN_5_BATTLES", models.RewardTypeCoins, "250")
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	result, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.NoError(t, err)
	require.Equal(t, models.RewardTypeCoins, result.RewardType)
	require.EqualValues(t, 250, result.Coins)
	require.Equal(t, "250 coins", result.Description)
	require.EqualValues(t, 250, store.WalletBalance("user-1"))

	_, err = issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.ErrorIs(t, err, services.ErrAlreadyClaimed)
	require.EqualValues(t, 250, store.WalletBalance("user-1"))
}

func TestClaimConcurrentDoubleClaim(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "WIN_5_BATTLES", models.RewardTypeCoins, "100")
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, services.ErrAlreadyClaimed):
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, conflicts)
	require.EqualValues(t, 100, store.WalletBalance("user-1"))
}

func TestClaimRequiresCompletion(t *testing.T) {
	ctx := context.Background()

	def := storagetest.NewDefinition("WIN_5_BATTLES", models.ObjectiveBattleWins, 5)
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	store := storagetest.NewFakeStore()
	issuer := services.NewRewardIssuer(catalog, store)

	t.Run("no progress row", func(t *testing.T) {
		_, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
		require.ErrorIs(t, err, services.ErrNotCompletedYet)
	})

	t.Run("in progress", func(t *testing.T) {
		store.SeedProgress(models.ObjectiveProgress{UserID: "user-1", ObjectiveID: def.ID, CurrentValue: 3})
		_, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
		require.ErrorIs(t, err, services.ErrNotCompletedYet)
	})

	require.Zero(t, store.WalletBalance("user-1"))
}

func TestClaimUnknownObjective(t *testing.T) {
	catalog := &storagetest.FakeCatalog{}
	store := storagetest.NewFakeStore()
	issuer := services.NewRewardIssuer(catalog, store)

	_, err := issuer.Claim(context.Background(), "user-1", "NO_SUCH_OBJECTIVE")
	require.ErrorIs(t, err, services.ErrObjectiveNotFound)
}

func TestClaimInactiveDefinitionStaysClaimable(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "S02_FINALE", models.RewardTypeCoins, "1000")
	def.IsActive = false
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	// The season closed and the definition was deactivated, but the user
	// earned the reward while it ran.
	result, err := issuer.Claim(ctx, "user-1", "S02_FINALE")
	require.NoError(t, err)
	require.EqualValues(t, 1000, result.Coins)
}

func TestClaimRollsBackStampWhenGrantFails(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "WIN_5_BATTLES", models.RewardTypeCoins, "100")
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	store.WalletErr = errors.New("wallet service down")

	_, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.Error(t, err)
	require.NotErrorIs(t, err, services.ErrAlreadyClaimed)
	require.Zero(t, store.WalletBalance("user-1"))

	// The stamp rolled back with the grant, so the claim is retryable.
	progress, getErr := store.Get(ctx, "user-1", def.ID)
	require.NoError(t, getErr)
	require.NotNil(t, progress)
	require.Nil(t, progress.RewardClaimedAt)

	store.WalletErr = nil
	result, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.NoError(t, err)
	require.EqualValues(t, 100, result.Coins)
	require.EqualValues(t, 100, store.WalletBalance("user-1"))
}

func TestClaimGrantsPack(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "WIN_5_BATTLES", models.RewardTypePack, "GOLD_PACK")
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	result, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.NoError(t, err)
	require.Equal(t, models.RewardKindPack, result.Kind)
	require.Equal(t, models.RewardTypePack, result.RewardType)
	require.Equal(t, "GOLD_PACK", result.PackCode)
	require.Equal(t, "1x GOLD_PACK pack", result.Description)

	packs := store.PacksGranted("user-1")
	require.Len(t, packs, 1)
	granted := packs[0]
	require.Equal(t, "GOLD_PACK", granted.PackCode)
	require.Equal(t, models.PackSourceObjective, granted.SourceType)
	require.Equal(t, def.ID, granted.SourceRef)
}

func TestClaimGrantsSpecialToken(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "SEASON_CHAMPION", models.RewardTypeSpecial, "CHAMPION_FRAME")
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	result, err := issuer.Claim(ctx, "user-1", "SEASON_CHAMPION")
	require.NoError(t, err)
	require.Equal(t, models.RewardTypeSpecial, result.RewardType)
	require.Equal(t, "CHAMPION_FRAME", result.Token)

	// Special rewards carry no wallet or pack side effects.
	require.Zero(t, store.WalletBalance("user-1"))
	require.Empty(t, store.PacksGranted("user-1"))

	progress, err := store.Get(ctx, "user-1", def.ID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	require.NotNil(t, progress.RewardClaimedAt)
}

func TestClaimMalformedCoinValueGrantsNothing(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "WIN_5_BATTLES", models.RewardTypeCoins, "not-a-number")
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	result, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.NoError(t, err)
	require.Zero(t, result.Coins)
	require.Zero(t, store.WalletBalance("user-1"))

	// The claim is still consumed.
	_, err = issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.ErrorIs(t, err, services.ErrAlreadyClaimed)
}

func TestClaimDescriptionGroupsThousands(t *testing.T) {
	ctx := context.Background()

	store := storagetest.NewFakeStore()
	def := completedDefinition(store, "WIN_5_BATTLES", models.RewardTypeCoins, "12500")
	catalog := &storagetest.FakeCatalog{Definitions: []models.ObjectiveDefinition{def}}
	issuer := services.NewRewardIssuer(catalog, store)

	result, err := issuer.Claim(ctx, "user-1", "WIN_5_BATTLES")
	require.NoError(t, err)
	require.Equal(t, "12,500 coins", result.Description)
}

func TestClaimSetLifecycle(t *testing.T) {
	ctx := context.Background()

	a := storagetest.NewDefinition("A", models.ObjectiveBattleWins, 5)
	b := storagetest.NewDefinition("B", models.ObjectiveDailyLogins, 3)
	set := storagetest.NewSet("STARTER", a, b)

	catalog := &storagetest.FakeCatalog{
		Definitions: []models.ObjectiveDefinition{a, b},
		Sets:        []models.ObjectiveSet{set},
	}
	store := storagetest.NewFakeStore()
	aggregator := services.NewSetAggregator(catalog, store, store)
	issuer := services.NewRewardIssuer(catalog, store)

	_, err := issuer.ClaimSet(ctx, "user-1", "STARTER")
	require.ErrorIs(t, err, services.ErrSetNotCompleted)

	seedCompleted(store, "user-1", a)
	require.NoError(t, aggregator.Recompute(ctx, "user-1"))

	// One member down is still not claimable.
	_, err = issuer.ClaimSet(ctx, "user-1", "STARTER")
	require.ErrorIs(t, err, services.ErrSetNotCompleted)

	seedCompleted(store, "user-1", b)
	require.NoError(t, aggregator.Recompute(ctx, "user-1"))

	result, err := issuer.ClaimSet(ctx, "user-1", "STARTER")
	require.NoError(t, err)
	require.EqualValues(t, 500, result.Coins)
	require.EqualValues(t, 500, store.WalletBalance("user-1"))

	_, err = issuer.ClaimSet(ctx, "user-1", "STARTER")
	require.ErrorIs(t, err, services.ErrAlreadyClaimed)
	require.EqualValues(t, 500, store.WalletBalance("user-1"))
}

func TestClaimSetUnknown(t *testing.T) {
	catalog := &storagetest.FakeCatalog{}
	store := storagetest.NewFakeStore()
	issuer := services.NewRewardIssuer(catalog, store)

	_, err := issuer.ClaimSet(context.Background(), "user-1", "NO_SUCH_SET")
	require.ErrorIs(t, err, services.ErrSetNotFound)
}

func TestClaimSetRollsBackWhenPackGrantFails(t *testing.T) {
	ctx := context.Background()

	a := storagetest.NewDefinition("A", models.ObjectiveBattleWins, 5)
	set := storagetest.NewSet("STARTER", a)
	set.RewardType = models.RewardTypePack
	set.RewardValue = "DIAMOND_PACK"
	set.ResolveReward()

	catalog := &storagetest.FakeCatalog{
		Definitions: []models.ObjectiveDefinition{a},
		Sets:        []models.ObjectiveSet{set},
	}
	store := storagetest.NewFakeStore()
	now := time.Now()
	store.SeedSetProgress(models.ObjectiveSetProgress{
		UserID:      "user-1",
		SetID:       set.ID,
		IsCompleted: true,
		CompletedAt: &now,
	})
	issuer := services.NewRewardIssuer(catalog, store)

	store.PackErr = errors.New("inventory service down")

	_, err := issuer.ClaimSet(ctx, "user-1", "STARTER")
	require.Error(t, err)
	require.Empty(t, store.PacksGranted("user-1"))

	progress, getErr := store.GetSet(ctx, "user-1", set.ID)
	require.NoError(t, getErr)
	require.NotNil(t, progress)
	require.Nil(t, progress.RewardClaimedAt)

	store.PackErr = nil
	result, err := issuer.ClaimSet(ctx, "user-1", "STARTER")
	require.NoError(t, err)
	require.Equal(t, "DIAMOND_PACK", result.PackCode)

	packs := store.PacksGranted("user-1")
	require.Len(t, packs, 1)
	require.Equal(t, models.PackSourceSet, packs[0].SourceType)
	require.Equal(t, set.ID, packs[0].SourceRef)
}
