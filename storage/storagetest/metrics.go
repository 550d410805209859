package storagetest

import (
	"context"
	"sync"

	"monster-league-system/models"
	"monster-league-system/services"
)

// FakeMetrics serves canonical counts from maps and records how often each
// metric is queried, so tests can assert the per-pass memoization.
type FakeMetrics struct {
	mu sync.Mutex

	PackOpens      map[string]int64 // userID
	CollectionSize map[string]int64 // userID
	RareCount      map[string]int64 // userID
	FantasyPoints  map[string]int64 // userID+"/"+seasonCode
	ScoredWeeks    map[string]int64 // userID+"/"+seasonCode
	MarketBuys     map[string]int64 // userID
	MarketSells    map[string]int64 // userID

	Errs  map[models.ObjectiveType]error // per-type failure injection
	Calls map[models.ObjectiveType]int
}

var _ services.MetricSource = (*FakeMetrics)(nil)

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{
		PackOpens:      make(map[string]int64),
		CollectionSize: make(map[string]int64),
		RareCount:      make(map[string]int64),
		FantasyPoints:  make(map[string]int64),
		ScoredWeeks:    make(map[string]int64),
		MarketBuys:     make(map[string]int64),
		MarketSells:    make(map[string]int64),
		Errs:           make(map[models.ObjectiveType]error),
		Calls:          make(map[models.ObjectiveType]int),
	}
}

func (m *FakeMetrics) read(objType models.ObjectiveType, values map[string]int64, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[objType]++
	if err := m.Errs[objType]; err != nil {
		return 0, err
	}
	return values[key], nil
}

func (m *FakeMetrics) PackOpenCount(ctx context.Context, userID string) (int64, error) {
	return m.read(models.ObjectiveOpenPacksAny, m.PackOpens, userID)
}

func (m *FakeMetrics) ActiveCollectionSize(ctx context.Context, userID string) (int64, error) {
	return m.read(models.ObjectiveCollectionSize, m.CollectionSize, userID)
}

func (m *FakeMetrics) RareOrBetterCount(ctx context.Context, userID string) (int64, error) {
	return m.read(models.ObjectiveRareCollection, m.RareCount, userID)
}

func (m *FakeMetrics) SeasonFantasyPoints(ctx context.Context, userID, seasonCode string) (int64, error) {
	return m.read(models.ObjectiveSeasonPoints, m.FantasyPoints, userID+"/"+seasonCode)
}

func (m *FakeMetrics) ScoredGameweekCount(ctx context.Context, userID, seasonCode string) (int64, error) {
	return m.read(models.ObjectiveScoredGameweeks, m.ScoredWeeks, userID+"/"+seasonCode)
}

func (m *FakeMetrics) MarketBuyCount(ctx context.Context, userID string) (int64, error) {
	return m.read(models.ObjectiveMarketBuys, m.MarketBuys, userID)
}

func (m *FakeMetrics) MarketSellCount(ctx context.Context, userID string) (int64, error) {
	return m.read(models.ObjectiveMarketSells, m.MarketSells, userID)
}
