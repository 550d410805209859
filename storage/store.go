// Package storage holds the GORM-backed implementations of the engine's
// persistence interfaces. Everything here runs against the shared league
// Postgres database.
package storage

import (
	"context"

	"gorm.io/gorm"

	"monster-league-system/services"
)

// Store is the transaction runner. Each InTx call maps onto one database
// transaction; callbacks receive repositories bound to that transaction,
// so locks taken inside are held until commit or rollback.
type Store struct {
	db *gorm.DB
}

var _ services.TxRunner = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx services.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Progress() services.ProgressStore {
	return NewProgressRepository(t.db)
}

func (t *gormTx) Wallet() services.Ledger {
	return NewWalletRepository(t.db)
}

func (t *gormTx) Packs() services.PackInventory {
	return NewPackRepository(t.db)
}
