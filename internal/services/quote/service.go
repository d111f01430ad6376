// Package quote provides the cached quote read/write path
package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// Compile-time interface check
var _ interfaces.QuoteService = (*Service)(nil)

// exampleStocks seeds an empty quote cache for demos and local development.
var exampleStocks = []models.Stock{
	{Symbol: "AAPL", Name: "Apple Inc.", CurrentPrice: 175.43, PreviousClose: 173.50, MarketCap: 2.8e12, Volume: 45e6},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", CurrentPrice: 142.56, PreviousClose: 140.25, MarketCap: 1.8e12, Volume: 28e6},
	{Symbol: "MSFT", Name: "Microsoft Corporation", CurrentPrice: 378.85, PreviousClose: 375.20, MarketCap: 2.9e12, Volume: 32e6},
	{Symbol: "TSLA", Name: "Tesla, Inc.", CurrentPrice: 248.42, PreviousClose: 245.67, MarketCap: 8e11, Volume: 55e6},
	{Symbol: "AMZN", Name: "Amazon.com, Inc.", CurrentPrice: 155.89, PreviousClose: 153.45, MarketCap: 1.6e12, Volume: 38e6},
}

// Service implements QuoteService over the stock store.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

// NewService creates a new quote service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// GetQuote returns the cached quote for symbol.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*models.Stock, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	}
	stock, err := s.storage.StockStore().Get(ctx, symbol)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("no quote for %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return stock, nil
}

// GetQuotes returns the cached quotes for symbols. Unknown symbols are
// skipped; duplicates are collapsed.
func (s *Service) GetQuotes(ctx context.Context, symbols []string) ([]*models.Stock, error) {
	seen := make(map[string]bool, len(symbols))
	normalized := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = models.NormalizeSymbol(sym)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		normalized = append(normalized, sym)
	}
	if len(normalized) == 0 {
		return []*models.Stock{}, nil
	}

	stocks, err := s.storage.StockStore().GetBatch(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}
	return stocks, nil
}

// UpdateQuote stores a quote, stamping LastUpdated with the current time.
func (s *Service) UpdateQuote(ctx context.Context, stock *models.Stock) (*models.Stock, error) {
	if stock == nil {
		return nil, fmt.Errorf("%w: quote is required", models.ErrInvalidInput)
	}
	updated := *stock
	updated.Symbol = models.NormalizeSymbol(updated.Symbol)
	if updated.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	}
	if !validPrice(updated.CurrentPrice) {
		return nil, fmt.Errorf("%w: current price must be positive", models.ErrInvalidInput)
	}
	if updated.PreviousClose < 0 || math.IsNaN(updated.PreviousClose) || math.IsInf(updated.PreviousClose, 0) {
		return nil, fmt.Errorf("%w: previous close must not be negative", models.ErrInvalidInput)
	}
	updated.LastUpdated = s.now().UTC()

	if err := s.storage.StockStore().Upsert(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}

	s.logger.Debug().
		Str("symbol", updated.Symbol).
		Float64("price", updated.CurrentPrice).
		Msg("Quote updated")
	return &updated, nil
}

// SeedExamples inserts the example quotes that are not already cached and
// returns how many were inserted. Existing quotes are left untouched.
func (s *Service) SeedExamples(ctx context.Context) (int, error) {
	store := s.storage.StockStore()
	inserted := 0
	for _, example := range exampleStocks {
		_, err := store.Get(ctx, example.Symbol)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return inserted, fmt.Errorf("failed to check quote %s: %w", example.Symbol, err)
		}

		stock := example
		stock.LastUpdated = s.now().UTC()
		if err := store.Upsert(ctx, &stock); err != nil {
			return inserted, fmt.Errorf("failed to seed quote %s: %w", example.Symbol, err)
		}
		inserted++
	}

	if inserted > 0 {
		s.logger.Info().Int("inserted", inserted).Msg("Seeded example quotes")
	}
	return inserted, nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
