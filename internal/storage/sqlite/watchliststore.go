package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

type WatchlistStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewWatchlistStore(db *sql.DB, logger *common.Logger) *WatchlistStore {
	return &WatchlistStore{db: db, logger: logger}
}

func (s *WatchlistStore) Get(ctx context.Context, userID, symbol string) (*models.WatchlistItem, error) {
	var item models.WatchlistItem
	var added int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, symbol, added_at FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol).
		Scan(&item.UserID, &item.Symbol, &added)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("watchlist %s/%s: %w", userID, symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select watchlist item: %w", err)
	}
	item.AddedAt = fromNanos(added)
	return &item, nil
}

// Add returns models.ErrAlreadyWatched when the symbol is already present.
func (s *WatchlistStore) Add(ctx context.Context, item *models.WatchlistItem) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (user_id, symbol, added_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		item.UserID, item.Symbol, toNanos(item.AddedAt))
	if err != nil {
		return fmt.Errorf("failed to add watchlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrAlreadyWatched
	}
	return nil
}

// Remove returns models.ErrNotWatched when the symbol is absent.
func (s *WatchlistStore) Remove(ctx context.Context, userID, symbol string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotWatched
	}
	return nil
}

func (s *WatchlistStore) List(ctx context.Context, userID string) ([]*models.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, symbol, added_at FROM watchlist WHERE user_id = ? ORDER BY added_at, symbol`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	var out []*models.WatchlistItem
	for rows.Next() {
		var item models.WatchlistItem
		var added int64
		if err := rows.Scan(&item.UserID, &item.Symbol, &added); err != nil {
			return nil, err
		}
		item.AddedAt = fromNanos(added)
		out = append(out, &item)
	}
	return out, rows.Err()
}
