package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioStore(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, &models.Portfolio{ID: "p1", UserID: "u1", Name: "First", Description: "core", CreatedAt: created}))
	require.NoError(t, store.Save(ctx, &models.Portfolio{ID: "p2", UserID: "u1", Name: "Second", CreatedAt: created.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, &models.Portfolio{ID: "p3", UserID: "u2", Name: "Theirs", CreatedAt: created}))

	got, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "core", got.Description)

	list, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)

	require.NoError(t, store.UpdateTotals(ctx, &models.Totals{PortfolioID: "p1", TotalValue: 1200, TotalInvestment: 1000, RefreshedAt: time.Now()}))
	got, err = store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, got.TotalValue)
	assert.Equal(t, 1000.0, got.TotalInvestment)

	assert.ErrorIs(t, store.UpdateTotals(ctx, &models.Totals{PortfolioID: "missing"}), models.ErrNotFound)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPositionStore(t *testing.T) {
	db := testDB(t)
	store := NewPositionStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, newPosition("p1", "MSFT", 4, 25, 1)))
	require.NoError(t, store.Upsert(ctx, newPosition("p1", "AAPL", 10, 100, 1)))
	require.NoError(t, store.Upsert(ctx, newPosition("p1", "AAPL", 12, 100, 2)))
	assert.ErrorIs(t, store.Upsert(ctx, newPosition("p1", "ZERO", 0, 1, 1)), models.ErrInvalidInput)

	list, err := store.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAPL", list[0].Symbol)
	assert.Equal(t, int64(12), list[0].Quantity)

	require.NoError(t, store.MarkToMarket(ctx, "p1", "AAPL", 110))
	got, err := store.Get(ctx, "p1", "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 1320.0, got.CurrentValue, 1e-9)
	assert.Equal(t, int64(2), got.Version, "marking leaves the version alone")

	assert.ErrorIs(t, store.MarkToMarket(ctx, "p1", "TSLA", 1), models.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "p1", "MSFT"))
	_, err = store.Get(ctx, "p1", "MSFT")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLedgerStore(t *testing.T) {
	db := testDB(t)
	store := NewLedgerStore(db, testLogger())
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, sym := range []string{"AAPL", "MSFT", "AAPL", "TSLA"} {
		e := newEntry("p1", sym, models.SideBuy, int64(i+1), 10)
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		id, err := store.Append(ctx, e)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	desc, err := store.List(ctx, "p1", interfaces.LedgerQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, "TSLA", desc[0].Symbol)
	assert.NotEmpty(t, desc[0].ID)

	asc, err := store.List(ctx, "p1", interfaces.LedgerQuery{Order: interfaces.OrderAsc, Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, int64(1), asc[0].Quantity)

	// Appending an existing ID fails rather than overwriting.
	dup := *asc[0]
	dup.Price = 1
	_, err = store.Append(ctx, &dup)
	assert.Error(t, err)

	again, err := store.List(ctx, "p1", interfaces.LedgerQuery{Order: interfaces.OrderAsc, Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, asc[0].Price, again[0].Price, "original entry kept")
}

func TestStockStore(t *testing.T) {
	db := testDB(t)
	store := NewStockStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &models.Stock{Symbol: "AAPL", Name: "Apple", CurrentPrice: 175.43, PreviousClose: 173.50, LastUpdated: time.Now()}))
	require.NoError(t, store.Upsert(ctx, &models.Stock{Symbol: "MSFT", Name: "Microsoft", CurrentPrice: 378.85, PreviousClose: 375.20, LastUpdated: time.Now()}))

	got, err := store.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 175.43, got.CurrentPrice)

	batch, err := store.GetBatch(ctx, []string{"MSFT", "AAPL", "NOPE"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	_, err = store.Get(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWatchlistStore(t *testing.T) {
	db := testDB(t)
	store := NewWatchlistStore(db, testLogger())
	ctx := context.Background()

	item := &models.WatchlistItem{UserID: "u1", Symbol: "AAPL", AddedAt: time.Now()}
	require.NoError(t, store.Add(ctx, item))
	assert.ErrorIs(t, store.Add(ctx, item), models.ErrAlreadyWatched)

	list, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Remove(ctx, "u1", "AAPL"))
	assert.ErrorIs(t, store.Remove(ctx, "u1", "AAPL"), models.ErrNotWatched)
}
