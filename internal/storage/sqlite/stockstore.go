package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

type StockStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewStockStore(db *sql.DB, logger *common.Logger) *StockStore {
	return &StockStore{db: db, logger: logger}
}

const stockColumns = `symbol, name, current_price, previous_close, market_cap, volume, last_updated`

func scanStock(row rowScanner) (*models.Stock, error) {
	var st models.Stock
	var updated int64
	if err := row.Scan(&st.Symbol, &st.Name, &st.CurrentPrice, &st.PreviousClose, &st.MarketCap, &st.Volume, &updated); err != nil {
		return nil, err
	}
	st.LastUpdated = fromNanos(updated)
	return &st, nil
}

func (s *StockStore) Get(ctx context.Context, symbol string) (*models.Stock, error) {
	st, err := scanStock(s.db.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM stocks WHERE symbol = ?`, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stock %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select stock: %w", err)
	}
	return st, nil
}

func (s *StockStore) GetBatch(ctx context.Context, symbols []string) ([]*models.Stock, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	args := make([]any, len(symbols))
	for i, sym := range symbols {
		args[i] = sym
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stockColumns+` FROM stocks WHERE symbol IN (`+placeholders+`) ORDER BY symbol`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock batch: %w", err)
	}
	defer rows.Close()

	var out []*models.Stock
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *StockStore) Upsert(ctx context.Context, st *models.Stock) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stocks (`+stockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			current_price = excluded.current_price,
			previous_close = excluded.previous_close,
			market_cap = excluded.market_cap,
			volume = excluded.volume,
			last_updated = excluded.last_updated`,
		st.Symbol, st.Name, st.CurrentPrice, st.PreviousClose, st.MarketCap, st.Volume, toNanos(st.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to save stock: %w", err)
	}
	return nil
}
