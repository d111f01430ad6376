// Package surrealdb implements interfaces.StorageManager on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	internalStore  *InternalStore
	portfolioStore *PortfolioStore
	positionStore  *PositionStore
	ledgerStore    *LedgerStore
	stockStore     *StockStore
	watchlistStore *WatchlistStore
}

// Tables defined on connect (SurrealDB v3 errors on querying non-existent tables).
var tables = []string{"user", "user_kv", "portfolio", "position", "ledger", "stock", "watchlist"}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineSchema(ctx, db); err != nil {
		return nil, err
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}
	m.internalStore = NewInternalStore(db, logger)
	m.portfolioStore = NewPortfolioStore(db, logger)
	m.positionStore = NewPositionStore(db, logger)
	m.ledgerStore = NewLedgerStore(db, logger)
	m.stockStore = NewStockStore(db, logger)
	m.watchlistStore = NewWatchlistStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func defineSchema(ctx context.Context, db *surrealdb.DB) error {
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if err := execQuery(ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	indexes := []string{
		"DEFINE INDEX IF NOT EXISTS portfolio_user ON portfolio FIELDS user_id",
		"DEFINE INDEX IF NOT EXISTS position_portfolio ON position FIELDS portfolio_id",
		"DEFINE INDEX IF NOT EXISTS ledger_portfolio ON ledger FIELDS portfolio_id, executed_at",
		"DEFINE INDEX IF NOT EXISTS watchlist_user ON watchlist FIELDS user_id",
	}
	for _, sql := range indexes {
		if err := execQuery(ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define index: %w", err)
		}
	}
	return nil
}

func (m *Manager) InternalStore() interfaces.InternalStore {
	return m.internalStore
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolioStore
}

func (m *Manager) PositionStore() interfaces.PositionStore {
	return m.positionStore
}

func (m *Manager) LedgerStore() interfaces.LedgerStore {
	return m.ledgerStore
}

func (m *Manager) StockStore() interfaces.StockStore {
	return m.stockStore
}

func (m *Manager) WatchlistStore() interfaces.WatchlistStore {
	return m.watchlistStore
}

func (m *Manager) TradeCommitter() interfaces.TradeCommitter {
	return m
}

// PurgePortfolio deletes the portfolio, its positions and its ledger in one transaction.
func (m *Manager) PurgePortfolio(ctx context.Context, portfolioID string) (map[string]int, error) {
	sql := `BEGIN TRANSACTION;
		DELETE ledger WHERE portfolio_id = $pid RETURN BEFORE;
		DELETE position WHERE portfolio_id = $pid RETURN BEFORE;
		DELETE $rid RETURN BEFORE;
		COMMIT TRANSACTION;`
	vars := map[string]any{
		"pid": portfolioID,
		"rid": portfolioRID(portfolioID),
	}

	results, err := surrealdb.Query[[]map[string]any](ctx, m.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to purge portfolio: %w", err)
	}

	counts := map[string]int{"ledger": 0, "positions": 0, "portfolios": 0}
	if results != nil {
		keys := []string{"ledger", "positions", "portfolios"}
		// The three DELETE results are last.
		offset := len(*results) - len(keys)
		if offset < 0 {
			offset = 0
		}
		for i, key := range keys {
			if offset+i < len(*results) {
				counts[key] = len((*results)[offset+i].Result)
			}
		}
	}

	m.logger.Info().
		Str("portfolio_id", portfolioID).
		Int("ledger", counts["ledger"]).
		Int("positions", counts["positions"]).
		Msg("Portfolio purged")
	return counts, nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
