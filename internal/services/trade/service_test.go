package trade

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/stockfolio/internal/accounting"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/bobmcallan/stockfolio/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "trade.db")
	store, err := sqlite.NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, accounting.NewEngine(""), common.NewSilentLogger())
	clock := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	var mu sync.Mutex
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, store
}

func createPortfolio(t *testing.T, store interfaces.StorageManager, id, owner string) {
	t.Helper()
	require.NoError(t, store.PortfolioStore().Save(context.Background(), &models.Portfolio{
		ID:        id,
		UserID:    owner,
		Name:      "Growth",
		CreatedAt: time.Now().UTC(),
	}))
}

func ledger(t *testing.T, store interfaces.StorageManager, portfolioID string) []*models.LedgerEntry {
	t.Helper()
	entries, err := store.LedgerStore().List(context.Background(), portfolioID, interfaces.LedgerQuery{Order: interfaces.OrderAsc})
	require.NoError(t, err)
	return entries
}

func TestTrade_WorkedExample(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	ctx := common.WithUserID(context.Background(), "alice")

	r, err := svc.AddHolding(ctx, "p1", "aapl", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", r.Position.Symbol)
	assert.Equal(t, int64(1), r.Position.Version)
	assert.NotEmpty(t, r.Entry.ID, "store assigns the entry id")

	r, err = svc.AddHolding(ctx, "p1", "AAPL", 10, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(20), r.Position.Quantity)
	assert.Equal(t, 150.0, r.Position.AverageCost)
	assert.Equal(t, 3000.0, r.Position.InvestedCapital)
	assert.Equal(t, 4000.0, r.Position.CurrentValue)

	r, err = svc.SellHolding(ctx, "p1", "AAPL", 5, 180)
	require.NoError(t, err)
	assert.Equal(t, int64(15), r.Position.Quantity)
	assert.Equal(t, 150.0, r.Position.AverageCost)
	assert.Equal(t, 2250.0, r.Position.InvestedCapital)
	assert.Equal(t, 2700.0, r.Position.CurrentValue)
	assert.Equal(t, 150.0, r.RealizedGain)
	assert.Equal(t, 900.0, r.Entry.TotalAmount)

	stored, err := store.PositionStore().Get(context.Background(), "p1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, r.Position.Quantity, stored.Quantity)
	assert.Equal(t, r.Position.Version, stored.Version)

	r, err = svc.SellHolding(ctx, "p1", "AAPL", 15, 160)
	require.NoError(t, err)
	assert.Nil(t, r.Position, "full liquidation deletes the position")
	assert.Equal(t, 150.0, r.RealizedGain)

	_, err = store.PositionStore().Get(context.Background(), "p1", "AAPL")
	assert.ErrorIs(t, err, models.ErrNotFound)

	entries := ledger(t, store, "p1")
	require.Len(t, entries, 4)
	sides := []models.Side{entries[0].Side, entries[1].Side, entries[2].Side, entries[3].Side}
	assert.Equal(t, []models.Side{models.SideBuy, models.SideBuy, models.SideSell, models.SideSell}, sides)

	replayed, err := accounting.NewEngine("").Replay(entries)
	require.NoError(t, err)
	assert.Empty(t, replayed)
}

func TestTrade_RejectedSellChangesNothing(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	ctx := common.WithUserID(context.Background(), "alice")

	_, err := svc.AddHolding(ctx, "p1", "MSFT", 10, 300)
	require.NoError(t, err)

	_, err = svc.SellHolding(ctx, "p1", "MSFT", 11, 310)
	assert.ErrorIs(t, err, models.ErrInsufficientShares)

	_, err = svc.SellHolding(ctx, "p1", "TSLA", 1, 200)
	assert.ErrorIs(t, err, models.ErrHoldingNotFound)

	pos, err := store.PositionStore().Get(context.Background(), "p1", "MSFT")
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos.Quantity)
	assert.Equal(t, int64(1), pos.Version)
	assert.Len(t, ledger(t, store, "p1"), 1)
}

func TestTrade_Errors(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	alice := common.WithUserID(context.Background(), "alice")
	bob := common.WithUserID(context.Background(), "bob")

	tests := []struct {
		name    string
		ctx     context.Context
		pid     string
		qty     int64
		price   float64
		wantErr error
	}{
		{"no identity", context.Background(), "p1", 1, 10, models.ErrUnauthenticated},
		{"other owner", bob, "p1", 1, 10, models.ErrPortfolioNotFound},
		{"missing portfolio", alice, "nope", 1, 10, models.ErrPortfolioNotFound},
		{"zero quantity", alice, "p1", 0, 10, models.ErrInvalidInput},
		{"negative price", alice, "p1", 1, -10, models.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddHolding(tt.ctx, tt.pid, "AAPL", tt.qty, tt.price)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, ledger(t, store, "p1"))
}

func TestTrade_ConcurrentBuysLoseNothing(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	ctx := common.WithUserID(context.Background(), "alice")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.AddHolding(ctx, "p1", "AAPL", 2, 100)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.AddHolding(ctx, "p1", "GOOGL", 1, 50)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	aapl, err := store.PositionStore().Get(context.Background(), "p1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2*workers), aapl.Quantity)
	assert.Equal(t, int64(workers), aapl.Version)
	assert.Equal(t, 100.0, aapl.AverageCost)

	googl, err := store.PositionStore().Get(context.Background(), "p1", "GOOGL")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), googl.Quantity)

	assert.Len(t, ledger(t, store, "p1"), workers*2)
}

func TestTrade_ConflictWithExternalWriter(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	ctx := common.WithUserID(context.Background(), "alice")

	_, err := svc.AddHolding(ctx, "p1", "AAPL", 10, 100)
	require.NoError(t, err)

	commitFrom := func(version int64) error {
		return store.TradeCommitter().CommitTrade(context.Background(), &interfaces.TradeCommit{
			PortfolioID:     "p1",
			Symbol:          "AAPL",
			ExpectedVersion: version,
			Position:        &models.Position{PortfolioID: "p1", Symbol: "AAPL", Quantity: 20, AverageCost: 100, InvestedCapital: 2000, CurrentValue: 2000, Version: version + 1},
			Entry:           &models.LedgerEntry{PortfolioID: "p1", Symbol: "AAPL", Side: models.SideBuy, Quantity: 10, Price: 100, TotalAmount: 1000},
		})
	}

	// Another writer moves the position from version 1 to 2.
	require.NoError(t, commitFrom(1))
	// A second commit computed from version 1 is stale.
	assert.ErrorIs(t, commitFrom(1), models.ErrConflict)

	// The service reads the fresh version and succeeds.
	r, err := svc.AddHolding(ctx, "p1", "AAPL", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.Position.Version)
	assert.Equal(t, int64(30), r.Position.Quantity)
	assert.Len(t, ledger(t, store, "p1"), 3)
}

func TestTrade_RefreshDoesNotConflictWithTrades(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	ctx := common.WithUserID(context.Background(), "alice")

	done := make(chan struct{})
	stopped := make(chan struct{})
	marks := 0
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			default:
			}
			err := store.PositionStore().MarkToMarket(context.Background(), "p1", "AAPL", 110)
			if err == nil {
				marks++
			} else if !errors.Is(err, models.ErrNotFound) {
				t.Errorf("mark failed: %v", err)
				return
			}
		}
	}()

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddHolding(ctx, "p1", "AAPL", 1, 100)
			errs <- err
		}()
	}
	wg.Wait()
	close(done)
	<-stopped
	t.Logf("%d marks ran alongside the trades", marks)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	pos, err := store.PositionStore().Get(context.Background(), "p1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), pos.Quantity)
	assert.Equal(t, int64(workers), pos.Version)
	assert.Equal(t, 100.0, pos.AverageCost)
	assert.Len(t, ledger(t, store, "p1"), workers)
}

func TestTrade_OverflowingAmountWritesNothing(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	ctx := common.WithUserID(context.Background(), "alice")

	_, err := svc.AddHolding(ctx, "p1", "AAPL", math.MaxInt64/2, 1e300)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.AddHolding(ctx, "p1", "MSFT", 10, 1e307)
	require.NoError(t, err)
	_, err = svc.AddHolding(ctx, "p1", "MSFT", 10, math.MaxFloat64)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	positions, err := store.PositionStore().List(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "MSFT", positions[0].Symbol)
	assert.Equal(t, int64(10), positions[0].Quantity)
	assert.Equal(t, int64(1), positions[0].Version)
	assert.Len(t, ledger(t, store, "p1"), 1)

	// Totals over the surviving position still compute.
	totals := accounting.Aggregate("p1", positions, time.Now())
	assert.InEpsilon(t, 1e308, totals.TotalInvestment, 1e-9)
}

func TestTrade_ReopenedPositionKeepsCountingVersions(t *testing.T) {
	svc, store := newTestService(t)
	createPortfolio(t, store, "p1", "alice")
	ctx := common.WithUserID(context.Background(), "alice")

	_, err := svc.AddHolding(ctx, "p1", "AAPL", 10, 100)
	require.NoError(t, err)
	r, err := svc.AddHolding(ctx, "p1", "AAPL", 5, 100)
	require.NoError(t, err)
	require.Equal(t, int64(2), r.Position.Version)
	_, err = svc.SellHolding(ctx, "p1", "AAPL", 15, 120)
	require.NoError(t, err)

	r, err = svc.AddHolding(ctx, "p1", "AAPL", 3, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.Position.Version, "versions continue past liquidation")
	r, err = svc.AddHolding(ctx, "p1", "AAPL", 1, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Position.Version)

	// A commit computed from the old position's version 2 cannot land.
	err = store.TradeCommitter().CommitTrade(context.Background(), &interfaces.TradeCommit{
		PortfolioID:     "p1",
		Symbol:          "AAPL",
		ExpectedVersion: 2,
		Position:        &models.Position{PortfolioID: "p1", Symbol: "AAPL", Quantity: 16, AverageCost: 100, InvestedCapital: 1600, CurrentValue: 1600, Version: 3},
		Entry:           &models.LedgerEntry{PortfolioID: "p1", Symbol: "AAPL", Side: models.SideBuy, Quantity: 1, Price: 100, TotalAmount: 100},
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	pos, err := store.PositionStore().Get(context.Background(), "p1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos.Quantity)
	assert.Equal(t, int64(5), pos.Version)
}

func TestKeyLocks(t *testing.T) {
	var k keyLocks
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock("p1/AAPL")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
