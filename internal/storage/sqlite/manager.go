// Package sqlite implements interfaces.StorageManager on an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	_ "github.com/mattn/go-sqlite3"
)

// Manager implements interfaces.StorageManager using SQLite.
type Manager struct {
	db     *sql.DB
	logger *common.Logger
	path   string

	internalStore  *InternalStore
	portfolioStore *PortfolioStore
	positionStore  *PositionStore
	ledgerStore    *LedgerStore
	stockStore     *StockStore
	watchlistStore *WatchlistStore
}

// NewManager opens (creating if needed) the database at config.Storage.Path.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	path := config.Storage.Path
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	// Writers take the lock at BEGIN so a trade's read and write cannot be
	// split by another writer.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	m := &Manager{
		db:     db,
		logger: logger,
		path:   path,
	}
	m.internalStore = NewInternalStore(db, logger)
	m.portfolioStore = NewPortfolioStore(db, logger)
	m.positionStore = NewPositionStore(db, logger)
	m.ledgerStore = NewLedgerStore(db, logger)
	m.stockStore = NewStockStore(db, logger)
	m.watchlistStore = NewWatchlistStore(db, logger)

	logger.Info().Str("path", path).Msg("SQLite storage manager initialized")
	return m, nil
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

// PurgePortfolio removes a portfolio and everything it owns in one transaction.
func (m *Manager) PurgePortfolio(ctx context.Context, portfolioID string) (map[string]int, error) {
	counts := make(map[string]int)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin purge: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		key string
		sql string
	}{
		{"ledger", "DELETE FROM ledger WHERE portfolio_id = ?"},
		{"positions", "DELETE FROM positions WHERE portfolio_id = ?"},
		{"portfolios", "DELETE FROM portfolios WHERE id = ?"},
	}
	for _, step := range steps {
		res, err := tx.ExecContext(ctx, step.sql, portfolioID)
		if err != nil {
			return nil, fmt.Errorf("failed to purge %s: %w", step.key, err)
		}
		n, _ := res.RowsAffected()
		counts[step.key] = int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purge: %w", err)
	}

	m.logger.Info().
		Str("portfolio_id", portfolioID).
		Int("ledger", counts["ledger"]).
		Int("positions", counts["positions"]).
		Msg("Portfolio purged")
	return counts, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
