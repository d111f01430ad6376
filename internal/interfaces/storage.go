// Package interfaces defines service contracts for Stockfolio
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockfolio/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	// Storage accessors
	InternalStore() InternalStore
	PortfolioStore() PortfolioStore
	PositionStore() PositionStore
	LedgerStore() LedgerStore
	StockStore() StockStore
	WatchlistStore() WatchlistStore
	TradeCommitter() TradeCommitter

	// PurgePortfolio deletes a portfolio together with its positions and
	// ledger entries. Returns counts of deleted items per type.
	PurgePortfolio(ctx context.Context, portfolioID string) (map[string]int, error)

	// Lifecycle
	Close() error
}

// InternalStore manages user accounts and per-user config.
type InternalStore interface {
	// User accounts
	GetUser(ctx context.Context, userID string) (*models.InternalUser, error)
	SaveUser(ctx context.Context, user *models.InternalUser) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]string, error)

	// Per-user key-value config
	GetUserKV(ctx context.Context, userID, key string) (*models.UserKeyValue, error)
	SetUserKV(ctx context.Context, userID, key, value string) error
	ListUserKV(ctx context.Context, userID string) ([]*models.UserKeyValue, error)
}

// PortfolioStore persists portfolio headers and their denormalized totals.
type PortfolioStore interface {
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	Save(ctx context.Context, p *models.Portfolio) error
	ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error)
	ListAll(ctx context.Context) ([]*models.Portfolio, error)
	UpdateTotals(ctx context.Context, totals *models.Totals) error
}

// PositionStore holds one record per (portfolioID, symbol). It performs no
// accounting; the engine computes every value it stores.
type PositionStore interface {
	// Get returns models.ErrNotFound when no position exists.
	Get(ctx context.Context, portfolioID, symbol string) (*models.Position, error)
	Upsert(ctx context.Context, pos *models.Position) error
	Delete(ctx context.Context, portfolioID, symbol string) error
	List(ctx context.Context, portfolioID string) ([]*models.Position, error)

	// MarkToMarket atomically sets current_value = quantity * price.
	MarkToMarket(ctx context.Context, portfolioID, symbol string, price float64) error
}

// Ledger ordering.
const (
	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// LedgerQuery configures LedgerStore.List.
type LedgerQuery struct {
	Symbol string // optional filter
	Limit  int    // 0 = no limit
	Order  string // OrderDesc (default) or OrderAsc, by timestamp then id
}

// LedgerStore is the append-only trade log. Entries cannot be updated or
// deleted through this interface.
type LedgerStore interface {
	// Append stores entry, assigning an ID when empty, and returns the ID.
	Append(ctx context.Context, entry *models.LedgerEntry) (string, error)
	List(ctx context.Context, portfolioID string, q LedgerQuery) ([]*models.LedgerEntry, error)
}

// TradeCommit is the unit of work produced by one engine transition.
type TradeCommit struct {
	PortfolioID string
	Symbol      string

	// ExpectedVersion is the position version the transition was computed
	// from (0 when the position was absent).
	ExpectedVersion int64

	// Position is written when non-nil; when nil the position is deleted.
	Position *models.Position

	Entry *models.LedgerEntry
}

// TradeCommitter writes a position change and its ledger entry atomically.
// It returns models.ErrConflict, with nothing written, when the stored
// position version no longer matches ExpectedVersion.
type TradeCommitter interface {
	CommitTrade(ctx context.Context, commit *TradeCommit) error
}

// StockStore is the quote cache keyed by symbol.
type StockStore interface {
	Get(ctx context.Context, symbol string) (*models.Stock, error)
	GetBatch(ctx context.Context, symbols []string) ([]*models.Stock, error)
	Upsert(ctx context.Context, stock *models.Stock) error
}

// WatchlistStore holds per-user watched symbols, unique per (userID, symbol).
type WatchlistStore interface {
	Get(ctx context.Context, userID, symbol string) (*models.WatchlistItem, error)
	Add(ctx context.Context, item *models.WatchlistItem) error
	Remove(ctx context.Context, userID, symbol string) error
	List(ctx context.Context, userID string) ([]*models.WatchlistItem, error)
}
