package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type StockStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewStockStore(db *surrealdb.DB, logger *common.Logger) *StockStore {
	return &StockStore{db: db, logger: logger}
}

func (s *StockStore) Get(ctx context.Context, symbol string) (*models.Stock, error) {
	st, err := surrealdb.Select[models.Stock](ctx, s.db, surrealmodels.NewRecordID("stock", symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to select stock: %w", err)
	}
	if st == nil || st.Symbol == "" {
		return nil, fmt.Errorf("stock %s: %w", symbol, models.ErrNotFound)
	}
	return st, nil
}

func (s *StockStore) GetBatch(ctx context.Context, symbols []string) ([]*models.Stock, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	sql := "SELECT * FROM stock WHERE symbol IN $symbols ORDER BY symbol ASC"
	results, err := surrealdb.Query[[]models.Stock](ctx, s.db, sql, map[string]any{"symbols": symbols})
	if err != nil {
		return nil, fmt.Errorf("failed to get stock batch: %w", err)
	}

	var out []*models.Stock
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
	return out, nil
}

func (s *StockStore) Upsert(ctx context.Context, st *models.Stock) error {
	sql := "UPSERT $rid CONTENT $stock"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("stock", st.Symbol), "stock": st}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Stock](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save stock after retries: %w", lastErr)
}
