// Package storagetest provides in-memory implementations of the engine's
// persistence interfaces. FakeStore gives real rollback semantics: InTx
// snapshots state and restores it when the callback fails, so transactional
// behavior can be tested without a database.
package storagetest

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"monster-league-system/models"
	"monster-league-system/services"
)

// FakeCatalog serves a fixed catalog. Active filtering and reward resolution
// match the real repository.
type FakeCatalog struct {
	mu          sync.Mutex
	Definitions []models.ObjectiveDefinition
	Sets        []models.ObjectiveSet
	Season      *models.Season

	Err       error // returned by every method when set
	SeasonErr error // fails CurrentSeason only
}

var _ services.Catalog = (*FakeCatalog)(nil)

func (c *FakeCatalog) ActiveDefinitions(ctx context.Context) ([]models.ObjectiveDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []models.ObjectiveDefinition
	for _, def := range c.Definitions {
		if def.IsActive {
			def.ResolveReward()
			out = append(out, def)
		}
	}
	return out, nil
}

func (c *FakeCatalog) ActiveDefinitionsByType(ctx context.Context, objType models.ObjectiveType) ([]models.ObjectiveDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []models.ObjectiveDefinition
	for _, def := range c.Definitions {
		if def.IsActive && def.Type == objType {
			def.ResolveReward()
			out = append(out, def)
		}
	}
	return out, nil
}

func (c *FakeCatalog) DefinitionByCode(ctx context.Context, code string) (*models.ObjectiveDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, def := range c.Definitions {
		if def.Code == code {
			def.ResolveReward()
			return &def, nil
		}
	}
	return nil, nil
}

func (c *FakeCatalog) ActiveSets(ctx context.Context) ([]models.ObjectiveSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []models.ObjectiveSet
	for _, set := range c.Sets {
		if set.IsActive {
			set.ResolveReward()
			out = append(out, set)
		}
	}
	return out, nil
}

func (c *FakeCatalog) SetByCode(ctx context.Context, code string) (*models.ObjectiveSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, set := range c.Sets {
		if set.Code == code {
			set.ResolveReward()
			return &set, nil
		}
	}
	return nil, nil
}

func (c *FakeCatalog) CurrentSeason(ctx context.Context) (*models.Season, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if c.SeasonErr != nil {
		return nil, c.SeasonErr
	}
	return c.Season, nil
}

type storeData struct {
	progress    map[string]*models.ObjectiveProgress
	setProgress map[string]*models.ObjectiveSetProgress
	wallets     map[string]int64
	packs       []models.RewardPack
}

func newStoreData() *storeData {
	return &storeData{
		progress:    make(map[string]*models.ObjectiveProgress),
		setProgress: make(map[string]*models.ObjectiveSetProgress),
		wallets:     make(map[string]int64),
	}
}

func (d *storeData) clone() *storeData {
	out := newStoreData()
	for k, v := range d.progress {
		row := *v
		out.progress[k] = &row
	}
	for k, v := range d.setProgress {
		row := *v
		out.setProgress[k] = &row
	}
	for k, v := range d.wallets {
		out.wallets[k] = v
	}
	out.packs = append(out.packs, d.packs...)
	return out
}

func progressKey(userID, objectiveID string) string {
	return userID + "/" + objectiveID
}

// FakeStore is the in-memory ProgressStore + TxRunner + Ledger +
// PackInventory. One mutex stands in for row locks: transactions are
// serialized, same as contended FOR UPDATE rows.
type FakeStore struct {
	mu   sync.Mutex
	data *storeData

	SaveErr   error // fails Save/SaveSet
	WalletErr error // fails IncrementBalance
	PackErr   error // fails CreateRewardPack
	TxErr     error // fails InTx before the callback runs
}

var (
	_ services.ProgressStore = (*FakeStore)(nil)
	_ services.TxRunner      = (*FakeStore)(nil)
)

func NewFakeStore() *FakeStore {
	return &FakeStore{data: newStoreData()}
}

// InTx serializes on the store mutex, snapshots, and restores the snapshot
// when fn fails.
func (s *FakeStore) InTx(ctx context.Context, fn func(tx services.Tx) error) error {
	if s.TxErr != nil {
		return s.TxErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&fakeTx{store: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// --- ProgressStore outside transactions ---

func (s *FakeStore) Get(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProgress(userID, objectiveID), nil
}

func (s *FakeStore) ListByUser(ctx context.Context, userID string) ([]models.ObjectiveProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listProgress(userID), nil
}

func (s *FakeStore) GetForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProgress(userID, objectiveID), nil
}

func (s *FakeStore) GetOrCreateForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateProgress(userID, objectiveID), nil
}

func (s *FakeStore) Save(ctx context.Context, progress *models.ObjectiveProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveProgress(progress)
}

func (s *FakeStore) GetSet(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSetProgress(userID, setID), nil
}

func (s *FakeStore) ListSetsByUser(ctx context.Context, userID string) ([]models.ObjectiveSetProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listSetProgress(userID), nil
}

func (s *FakeStore) GetSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSetProgress(userID, setID), nil
}

func (s *FakeStore) GetOrCreateSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateSetProgress(userID, setID), nil
}

func (s *FakeStore) SaveSet(ctx context.Context, progress *models.ObjectiveSetProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSetProgress(progress)
}

// --- unlocked internals, shared with the transaction view ---

func (s *FakeStore) getProgress(userID, objectiveID string) *models.ObjectiveProgress {
	row, ok := s.data.progress[progressKey(userID, objectiveID)]
	if !ok {
		return nil
	}
	copied := *row
	return &copied
}

func (s *FakeStore) listProgress(userID string) []models.ObjectiveProgress {
	var out []models.ObjectiveProgress
	for key, row := range s.data.progress {
		if strings.HasPrefix(key, userID+"/") {
			out = append(out, *row)
		}
	}
	return out
}

func (s *FakeStore) getOrCreateProgress(userID, objectiveID string) *models.ObjectiveProgress {
	key := progressKey(userID, objectiveID)
	if _, ok := s.data.progress[key]; !ok {
		s.data.progress[key] = &models.ObjectiveProgress{
			ID:          uuid.NewString(),
			UserID:      userID,
			ObjectiveID: objectiveID,
		}
	}
	copied := *s.data.progress[key]
	return &copied
}

func (s *FakeStore) saveProgress(progress *models.ObjectiveProgress) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	copied := *progress
	s.data.progress[progressKey(progress.UserID, progress.ObjectiveID)] = &copied
	return nil
}

func (s *FakeStore) getSetProgress(userID, setID string) *models.ObjectiveSetProgress {
	row, ok := s.data.setProgress[progressKey(userID, setID)]
	if !ok {
		return nil
	}
	copied := *row
	return &copied
}

func (s *FakeStore) listSetProgress(userID string) []models.ObjectiveSetProgress {
	var out []models.ObjectiveSetProgress
	for key, row := range s.data.setProgress {
		if strings.HasPrefix(key, userID+"/") {
			out = append(out, *row)
		}
	}
	return out
}

func (s *FakeStore) getOrCreateSetProgress(userID, setID string) *models.ObjectiveSetProgress {
	key := progressKey(userID, setID)
	if _, ok := s.data.setProgress[key]; !ok {
		s.data.setProgress[key] = &models.ObjectiveSetProgress{
			ID:     uuid.NewString(),
			UserID: userID,
			SetID:  setID,
		}
	}
	copied := *s.data.setProgress[key]
	return &copied
}

func (s *FakeStore) saveSetProgress(progress *models.ObjectiveSetProgress) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	copied := *progress
	s.data.setProgress[progressKey(progress.UserID, progress.SetID)] = &copied
	return nil
}

// --- assertion helpers ---

// WalletBalance reports the coins credited to a user so far.
func (s *FakeStore) WalletBalance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.wallets[userID]
}

// PacksGranted lists the reward packs created for a user.
func (s *FakeStore) PacksGranted(userID string) []models.RewardPack {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RewardPack
	for _, pack := range s.data.packs {
		if pack.UserID == userID {
			out = append(out, pack)
		}
	}
	return out
}

// SeedProgress installs a progress row directly, bypassing the engine.
func (s *FakeStore) SeedProgress(progress models.ObjectiveProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	s.data.progress[progressKey(progress.UserID, progress.ObjectiveID)] = &progress
}

// SeedSetProgress installs a set progress row directly.
func (s *FakeStore) SeedSetProgress(progress models.ObjectiveSetProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	s.data.setProgress[progressKey(progress.UserID, progress.SetID)] = &progress
}

// --- transaction view ---

type fakeTx struct {
	store *FakeStore
}

func (t *fakeTx) Progress() services.ProgressStore { return &txProgress{store: t.store} }
func (t *fakeTx) Wallet() services.Ledger          { return &txLedger{store: t.store} }
func (t *fakeTx) Packs() services.PackInventory    { return &txPacks{store: t.store} }

// txProgress operates without locking; the InTx caller holds the mutex.
type txProgress struct {
	store *FakeStore
}

func (p *txProgress) Get(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	return p.store.getProgress(userID, objectiveID), nil
}

func (p *txProgress) ListByUser(ctx context.Context, userID string) ([]models.ObjectiveProgress, error) {
	return p.store.listProgress(userID), nil
}

func (p *txProgress) GetForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	return p.store.getProgress(userID, objectiveID), nil
}

func (p *txProgress) GetOrCreateForUpdate(ctx context.Context, userID, objectiveID string) (*models.ObjectiveProgress, error) {
	return p.store.getOrCreateProgress(userID, objectiveID), nil
}

func (p *txProgress) Save(ctx context.Context, progress *models.ObjectiveProgress) error {
	return p.store.saveProgress(progress)
}

func (p *txProgress) GetSet(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	return p.store.getSetProgress(userID, setID), nil
}

func (p *txProgress) ListSetsByUser(ctx context.Context, userID string) ([]models.ObjectiveSetProgress, error) {
	return p.store.listSetProgress(userID), nil
}

func (p *txProgress) GetSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	return p.store.getSetProgress(userID, setID), nil
}

func (p *txProgress) GetOrCreateSetForUpdate(ctx context.Context, userID, setID string) (*models.ObjectiveSetProgress, error) {
	return p.store.getOrCreateSetProgress(userID, setID), nil
}

func (p *txProgress) SaveSet(ctx context.Context, progress *models.ObjectiveSetProgress) error {
	return p.store.saveSetProgress(progress)
}

type txLedger struct {
	store *FakeStore
}

func (l *txLedger) IncrementBalance(ctx context.Context, userID string, amount int64) error {
	if l.store.WalletErr != nil {
		return l.store.WalletErr
	}
	l.store.data.wallets[userID] += amount
	return nil
}

type txPacks struct {
	store *FakeStore
}

func (p *txPacks) CreateRewardPack(ctx context.Context, userID, packCode string, source models.RewardPackSource, sourceRef string) (*models.RewardPack, error) {
	if p.store.PackErr != nil {
		return nil, p.store.PackErr
	}
	pack := models.RewardPack{
		ID:         uuid.NewString(),
		UserID:     userID,
		PackCode:   packCode,
		SourceType: source,
		SourceRef:  sourceRef,
	}
	p.store.data.packs = append(p.store.data.packs, pack)
	return &pack, nil
}
