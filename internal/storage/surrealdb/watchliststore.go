package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type WatchlistStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewWatchlistStore(db *surrealdb.DB, logger *common.Logger) *WatchlistStore {
	return &WatchlistStore{db: db, logger: logger}
}

func watchRID(userID, symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("watchlist", userID+"::"+symbol)
}

func (s *WatchlistStore) Get(ctx context.Context, userID, symbol string) (*models.WatchlistItem, error) {
	item, err := surrealdb.Select[models.WatchlistItem](ctx, s.db, watchRID(userID, symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to select watchlist item: %w", err)
	}
	if item == nil || item.Symbol == "" {
		return nil, fmt.Errorf("watchlist %s/%s: %w", userID, symbol, models.ErrNotFound)
	}
	return item, nil
}

// Add returns models.ErrAlreadyWatched when the symbol is already present.
// CREATE fails on an existing record ID, so the check and insert are one step.
func (s *WatchlistStore) Add(ctx context.Context, item *models.WatchlistItem) error {
	sql := "CREATE $rid SET user_id = $user_id, symbol = $symbol, added_at = $added_at"
	vars := map[string]any{
		"rid":      watchRID(item.UserID, item.Symbol),
		"user_id":  item.UserID,
		"symbol":   item.Symbol,
		"added_at": item.AddedAt,
	}
	if err := execQuery(ctx, s.db, sql, vars); err != nil {
		if _, getErr := s.Get(ctx, item.UserID, item.Symbol); getErr == nil {
			return models.ErrAlreadyWatched
		}
		return fmt.Errorf("failed to add watchlist item: %w", err)
	}
	return nil
}

// Remove returns models.ErrNotWatched when the symbol is absent.
func (s *WatchlistStore) Remove(ctx context.Context, userID, symbol string) error {
	sql := "DELETE $rid RETURN BEFORE"
	results, err := surrealdb.Query[[]models.WatchlistItem](ctx, s.db, sql, map[string]any{"rid": watchRID(userID, symbol)})
	if err != nil {
		return fmt.Errorf("failed to remove watchlist item: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.ErrNotWatched
	}
	return nil
}

func (s *WatchlistStore) List(ctx context.Context, userID string) ([]*models.WatchlistItem, error) {
	sql := "SELECT user_id, symbol, added_at FROM watchlist WHERE user_id = $user_id ORDER BY added_at ASC, symbol ASC"
	results, err := surrealdb.Query[[]models.WatchlistItem](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}

	var out []*models.WatchlistItem
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
	return out, nil
}
