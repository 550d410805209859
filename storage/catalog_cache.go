package storage

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"monster-league-system/models"
	"monster-league-system/services"
)

const (
	catalogAllKey     = "all"
	catalogSeasonKey  = "current"
	catalogTypePrefix = "type:"
)

// CachedCatalog decorates a Catalog with short-TTL caching. Definitions
// change on admin action only, and every recorded event reads the catalog,
// so even a 30s TTL removes nearly all definition queries. Admin mutations
// call InvalidateCatalog to drop the window entirely.
type CachedCatalog struct {
	inner services.Catalog

	defs      *ttlcache.Cache[string, []models.ObjectiveDefinition]
	defByCode *ttlcache.Cache[string, *models.ObjectiveDefinition]
	sets      *ttlcache.Cache[string, []models.ObjectiveSet]
	setByCode *ttlcache.Cache[string, *models.ObjectiveSet]
	seasons   *ttlcache.Cache[string, *models.Season]
}

var _ services.Catalog = (*CachedCatalog)(nil)

func NewCachedCatalog(inner services.Catalog, ttl time.Duration) *CachedCatalog {
	c := &CachedCatalog{
		inner:     inner,
		defs:      newCatalogCache[[]models.ObjectiveDefinition](ttl),
		defByCode: newCatalogCache[*models.ObjectiveDefinition](ttl),
		sets:      newCatalogCache[[]models.ObjectiveSet](ttl),
		setByCode: newCatalogCache[*models.ObjectiveSet](ttl),
		seasons:   newCatalogCache[*models.Season](ttl),
	}
	return c
}

func newCatalogCache[T any](ttl time.Duration) *ttlcache.Cache[string, T] {
	cache := ttlcache.New[string, T](
		ttlcache.WithTTL[string, T](ttl),
		ttlcache.WithDisableTouchOnHit[string, T](),
	)
	go cache.Start()
	return cache
}

// InvalidateCatalog drops everything; called after admin catalog mutations.
func (c *CachedCatalog) InvalidateCatalog() {
	c.defs.DeleteAll()
	c.defByCode.DeleteAll()
	c.sets.DeleteAll()
	c.setByCode.DeleteAll()
	c.seasons.DeleteAll()
}

func (c *CachedCatalog) ActiveDefinitions(ctx context.Context) ([]models.ObjectiveDefinition, error) {
	if item := c.defs.Get(catalogAllKey); item != nil {
		return item.Value(), nil
	}
	defs, err := c.inner.ActiveDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	c.defs.Set(catalogAllKey, defs, ttlcache.DefaultTTL)
	return defs, nil
}

func (c *CachedCatalog) ActiveDefinitionsByType(ctx context.Context, objType models.ObjectiveType) ([]models.ObjectiveDefinition, error) {
	key := catalogTypePrefix + string(objType)
	if item := c.defs.Get(key); item != nil {
		return item.Value(), nil
	}
	defs, err := c.inner.ActiveDefinitionsByType(ctx, objType)
	if err != nil {
		return nil, err
	}
	c.defs.Set(key, defs, ttlcache.DefaultTTL)
	return defs, nil
}

func (c *CachedCatalog) DefinitionByCode(ctx context.Context, code string) (*models.ObjectiveDefinition, error) {
	if item := c.defByCode.Get(code); item != nil {
		return item.Value(), nil
	}
	def, err := c.inner.DefinitionByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	// Unknown codes are cached too; invalidation covers late creations.
	c.defByCode.Set(code, def, ttlcache.DefaultTTL)
	return def, nil
}

func (c *CachedCatalog) ActiveSets(ctx context.Context) ([]models.ObjectiveSet, error) {
	if item := c.sets.Get(catalogAllKey); item != nil {
		return item.Value(), nil
	}
	sets, err := c.inner.ActiveSets(ctx)
	if err != nil {
		return nil, err
	}
	c.sets.Set(catalogAllKey, sets, ttlcache.DefaultTTL)
	return sets, nil
}

func (c *CachedCatalog) SetByCode(ctx context.Context, code string) (*models.ObjectiveSet, error) {
	if item := c.setByCode.Get(code); item != nil {
		return item.Value(), nil
	}
	set, err := c.inner.SetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.setByCode.Set(code, set, ttlcache.DefaultTTL)
	return set, nil
}

func (c *CachedCatalog) CurrentSeason(ctx context.Context) (*models.Season, error) {
	if item := c.seasons.Get(catalogSeasonKey); item != nil {
		return item.Value(), nil
	}
	season, err := c.inner.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}
	c.seasons.Set(catalogSeasonKey, season, ttlcache.DefaultTTL)
	return season, nil
}
