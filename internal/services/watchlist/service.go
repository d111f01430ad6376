// Package watchlist provides per-user watchlist management services
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*Service)(nil)

// Service implements WatchlistService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a new watchlist service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns the caller's watched symbols joined with their cached
// quotes. Symbols without a cached quote are omitted.
func (s *Service) List(ctx context.Context) ([]*models.WatchedStock, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.storage.WatchlistStore().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	if len(items) == 0 {
		return []*models.WatchedStock{}, nil
	}

	symbols := make([]string, len(items))
	for i, item := range items {
		symbols[i] = item.Symbol
	}
	stocks, err := s.storage.StockStore().GetBatch(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist quotes: %w", err)
	}
	bySymbol := make(map[string]*models.Stock, len(stocks))
	for _, st := range stocks {
		bySymbol[st.Symbol] = st
	}

	out := make([]*models.WatchedStock, 0, len(items))
	for _, item := range items {
		st, ok := bySymbol[item.Symbol]
		if !ok {
			continue
		}
		out = append(out, &models.WatchedStock{Stock: *st, AddedAt: item.AddedAt})
	}
	return out, nil
}

// Add watches symbol for the caller. Returns models.ErrAlreadyWatched when
// the symbol is already on the list.
func (s *Service) Add(ctx context.Context, symbol string) (*models.WatchlistItem, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	}

	item := &models.WatchlistItem{
		UserID:  userID,
		Symbol:  symbol,
		AddedAt: s.now().UTC(),
	}
	if err := s.storage.WatchlistStore().Add(ctx, item); err != nil {
		if errors.Is(err, models.ErrAlreadyWatched) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add to watchlist: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("symbol", symbol).Msg("Watchlist item added")
	return item, nil
}

// Remove stops watching symbol. Returns models.ErrNotWatched when the
// symbol was not on the list.
func (s *Service) Remove(ctx context.Context, symbol string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	}

	if err := s.storage.WatchlistStore().Remove(ctx, userID, symbol); err != nil {
		if errors.Is(err, models.ErrNotWatched) {
			return err
		}
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("symbol", symbol).Msg("Watchlist item removed")
	return nil
}

func requireUser(ctx context.Context) (string, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return "", models.ErrUnauthenticated
	}
	return userID, nil
}
