package services

import (
	"context"

	"monster-league-system/models"
)

// The engine components depend on these interfaces rather than on *gorm.DB,
// so tests can substitute fixed catalogs and in-memory stores. The GORM
// implementations live in the storage package.

// Catalog reads objective/set definitions and season scoping. Definitions are
// immutable per season, so implementations are free to cache reads.
type Catalog interface {
	// ActiveDefinitions returns every active definition, all seasons included.
	ActiveDefinitions(ctx context.Context) ([]models.ObjectiveDefinition, error)
	// ActiveDefinitionsByType returns the active definitions advanced by one
	// event kind. An empty slice means nothing tracks that kind.
	ActiveDefinitionsByType(ctx context.Context, objType models.ObjectiveType) ([]models.ObjectiveDefinition, error)
	// DefinitionByCode looks a definition up regardless of active state, so
	// rewards earned during a season stay claimable after it closes.
	// Returns (nil, nil) when the code is unknown.
	DefinitionByCode(ctx context.Context, code string) (*models.ObjectiveDefinition, error)
	// ActiveSets returns active sets with their member links preloaded.
	ActiveSets(ctx context.Context) ([]models.ObjectiveSet, error)
	// SetByCode mirrors DefinitionByCode for sets.
	SetByCode(ctx context.Context, code string) (*models.ObjectiveSet, error)
	// CurrentSeason returns the season whose window contains now, or nil.
	CurrentSeason(ctx context.Context) (*models.Season, error)
}

// ProgressStore persists per-user objective and set progress rows.
// The ForUpdate variants take row locks and are only valid inside a
// transaction started through TxRunner.
type ProgressStore interface {
	Get(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error)
	ListByUser(ctx context.Context, userID string) ([]models.ObjectiveProgress, error)
	GetForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error)
	GetOrCreateForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error)
	Save(ctx context.Context, progress *models.ObjectiveProgress) error

	GetSet(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error)
	ListSetsByUser(ctx context.Context, userID string) ([]models.ObjectiveSetProgress, error)
	GetSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error)
	GetOrCreateSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error)
	SaveSet(ctx context.Context, progress *models.ObjectiveSetProgress) error
}

// MetricSource computes the canonical counts the resynchronizer reconciles
// against. Every query is read-only and independent of the others.
type MetricSource interface {
	PackOpenCount(ctx context.Context, userID string) (int64, error)
	ActiveCollectionSize(ctx context.Context, userID string) (int64, error)
	RareOrBetterCount(ctx context.Context, userID string) (int64, error)
	SeasonFantasyPoints(ctx context.Context, userID, seasonCode string) (int64, error)
	ScoredGameweekCount(ctx context.Context, userID, seasonCode string) (int64, error)
	MarketBuyCount(ctx context.Context, userID string) (int64, error)
	MarketSellCount(ctx context.Context, userID string) (int64, error)
}

// Ledger is the currency collaborator. The engine only ever increments.
type Ledger interface {
	IncrementBalance(ctx context.Context, userID string, amount int64) error
}

// PackInventory is the item collaborator. The engine only ever creates.
type PackInventory interface {
	CreateRewardPack(ctx context.Context, userID, packCode string, source models.RewardPackSource, sourceRef string) (*models.RewardPack, error)
}

// Tx exposes the stores bound to one database transaction.
type Tx interface {
	Progress() ProgressStore
	Wallet() Ledger
	Packs() PackInventory
}

// TxRunner runs fn inside a transaction; a non-nil error rolls everything
// back, so the completion check and the stamp-and-grant step are inseparable.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
