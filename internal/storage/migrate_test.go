package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T, name string) interfaces.StorageManager {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), name)
	sm, err := NewStorageManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { sm.Close() })
	return sm
}

func TestNewStorageManager_UnknownBackend(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "badger"
	_, err := NewStorageManager(common.NewSilentLogger(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestMigrate_CopiesEverything(t *testing.T) {
	ctx := context.Background()
	src := newSQLite(t, "src.db")
	dst := newSQLite(t, "dst.db")
	now := time.Now().UTC()

	require.NoError(t, src.InternalStore().SaveUser(ctx, &models.InternalUser{UserID: "alice", Email: "a@example.com", Role: models.RoleUser}))
	require.NoError(t, src.InternalStore().SetUserKV(ctx, "alice", "last_login", "yesterday"))

	// bob only exists as a portfolio owner (trusted-header identity).
	for _, p := range []*models.Portfolio{
		{ID: "p1", UserID: "alice", Name: "Main", CreatedAt: now},
		{ID: "p2", UserID: "bob", Name: "Bob's", CreatedAt: now},
	} {
		require.NoError(t, src.PortfolioStore().Save(ctx, p))
	}
	require.NoError(t, src.TradeCommitter().CommitTrade(ctx, &interfaces.TradeCommit{
		PortfolioID: "p1", Symbol: "AAPL",
		Position: &models.Position{PortfolioID: "p1", Symbol: "AAPL", Quantity: 10, AverageCost: 100, InvestedCapital: 1000, CurrentValue: 1000, CreatedAt: now, UpdatedAt: now, Version: 1},
		Entry:    &models.LedgerEntry{PortfolioID: "p1", Symbol: "AAPL", Side: models.SideBuy, Quantity: 10, Price: 100, TotalAmount: 1000, Timestamp: now},
	}))
	require.NoError(t, src.WatchlistStore().Add(ctx, &models.WatchlistItem{UserID: "bob", Symbol: "TSLA", AddedAt: now}))
	for _, st := range []*models.Stock{
		{Symbol: "AAPL", CurrentPrice: 175.43, LastUpdated: now},
		{Symbol: "TSLA", CurrentPrice: 248.42, LastUpdated: now},
		{Symbol: "MSFT", CurrentPrice: 378.85, LastUpdated: now},
	} {
		require.NoError(t, src.StockStore().Upsert(ctx, st))
	}

	counts, err := Migrate(ctx, common.NewSilentLogger(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["users"])
	assert.Equal(t, 2, counts["portfolios"])
	assert.Equal(t, 1, counts["positions"])
	assert.Equal(t, 1, counts["ledger"])
	assert.Equal(t, 1, counts["watchlist"])
	assert.Equal(t, 2, counts["stocks"], "only referenced quotes are copied")

	srcEntries, err := src.LedgerStore().List(ctx, "p1", interfaces.LedgerQuery{})
	require.NoError(t, err)
	dstEntries, err := dst.LedgerStore().List(ctx, "p1", interfaces.LedgerQuery{})
	require.NoError(t, err)
	require.Len(t, dstEntries, 1)
	assert.Equal(t, srcEntries[0].ID, dstEntries[0].ID)

	pos, err := dst.PositionStore().Get(ctx, "p1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos.Version)

	kv, err := dst.InternalStore().GetUserKV(ctx, "alice", "last_login")
	require.NoError(t, err)
	assert.Equal(t, "yesterday", kv.Value)

	// Running again fails on the duplicate ledger entry.
	_, err = Migrate(ctx, common.NewSilentLogger(), src, dst)
	assert.Error(t, err)
}
