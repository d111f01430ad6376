package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// Migrate copies every record from src to dst: users and their settings,
// portfolios, positions, ledger entries (IDs preserved), watchlists and the
// quotes they reference. dst should be empty; ledger entries that already
// exist in dst make the copy fail rather than duplicate.
//
// Returns counts of copied items per type.
func Migrate(ctx context.Context, logger *common.Logger, src, dst interfaces.StorageManager) (map[string]int, error) {
	counts := make(map[string]int)

	userIDs, err := src.InternalStore().ListUsers(ctx)
	if err != nil {
		return counts, fmt.Errorf("list users: %w", err)
	}
	for _, id := range userIDs {
		if err := migrateUser(ctx, src, dst, id); err != nil {
			return counts, err
		}
		counts["users"]++
	}

	portfolios, err := src.PortfolioStore().ListAll(ctx)
	if err != nil {
		return counts, fmt.Errorf("list portfolios: %w", err)
	}

	owners := make(map[string]bool)
	for _, id := range userIDs {
		owners[id] = true
	}
	symbols := make(map[string]bool)

	for _, p := range portfolios {
		owners[p.UserID] = true

		if err := dst.PortfolioStore().Save(ctx, p); err != nil {
			return counts, fmt.Errorf("save portfolio %s: %w", p.ID, err)
		}
		counts["portfolios"]++

		positions, err := src.PositionStore().List(ctx, p.ID)
		if err != nil {
			return counts, fmt.Errorf("list positions of %s: %w", p.ID, err)
		}
		for _, pos := range positions {
			if err := dst.PositionStore().Upsert(ctx, pos); err != nil {
				return counts, fmt.Errorf("save position %s/%s: %w", p.ID, pos.Symbol, err)
			}
			symbols[pos.Symbol] = true
			counts["positions"]++
		}

		entries, err := src.LedgerStore().List(ctx, p.ID, interfaces.LedgerQuery{Order: interfaces.OrderAsc})
		if err != nil {
			return counts, fmt.Errorf("list ledger of %s: %w", p.ID, err)
		}
		for _, e := range entries {
			if _, err := dst.LedgerStore().Append(ctx, e); err != nil {
				return counts, fmt.Errorf("append ledger entry %s: %w", e.ID, err)
			}
			counts["ledger"]++
		}
	}

	for owner := range owners {
		items, err := src.WatchlistStore().List(ctx, owner)
		if err != nil {
			return counts, fmt.Errorf("list watchlist of %s: %w", owner, err)
		}
		for _, item := range items {
			err := dst.WatchlistStore().Add(ctx, item)
			if err != nil && !errors.Is(err, models.ErrAlreadyWatched) {
				return counts, fmt.Errorf("add watchlist item: %w", err)
			}
			symbols[item.Symbol] = true
			counts["watchlist"]++
		}
	}

	list := make([]string, 0, len(symbols))
	for sym := range symbols {
		list = append(list, sym)
	}
	sort.Strings(list)
	stocks, err := src.StockStore().GetBatch(ctx, list)
	if err != nil {
		return counts, fmt.Errorf("load quotes: %w", err)
	}
	for _, st := range stocks {
		if err := dst.StockStore().Upsert(ctx, st); err != nil {
			return counts, fmt.Errorf("save quote %s: %w", st.Symbol, err)
		}
		counts["stocks"]++
	}

	logger.Info().
		Int("users", counts["users"]).
		Int("portfolios", counts["portfolios"]).
		Int("positions", counts["positions"]).
		Int("ledger", counts["ledger"]).
		Int("watchlist", counts["watchlist"]).
		Int("stocks", counts["stocks"]).
		Msg("Storage migration complete")

	return counts, nil
}

func migrateUser(ctx context.Context, src, dst interfaces.StorageManager, userID string) error {
	user, err := src.InternalStore().GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	if err := dst.InternalStore().SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user %s: %w", userID, err)
	}

	kvs, err := src.InternalStore().ListUserKV(ctx, userID)
	if err != nil {
		return fmt.Errorf("list settings of %s: %w", userID, err)
	}
	for _, kv := range kvs {
		if err := dst.InternalStore().SetUserKV(ctx, userID, kv.Key, kv.Value); err != nil {
			return fmt.Errorf("save setting %s/%s: %w", userID, kv.Key, err)
		}
	}
	return nil
}
