package accounting

import (
	"testing"
	"time"

	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id, portfolioID, symbol string, side models.Side, qty int64, price float64, at time.Time) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:          id,
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Side:        side,
		Quantity:    qty,
		Price:       price,
		TotalAmount: float64(qty) * price,
		Timestamp:   at,
	}
}

func TestReplay_OrdersByTimestampThenID(t *testing.T) {
	e := NewEngine("")
	// Supplied newest first, as the ledger lists them by default.
	entries := []*models.LedgerEntry{
		entry("03", "p1", "AAPL", models.SideSell, 5, 180, t0.Add(time.Minute)),
		entry("02", "p1", "AAPL", models.SideBuy, 10, 200, t0),
		entry("01", "p1", "AAPL", models.SideBuy, 10, 100, t0),
	}

	got, err := e.Replay(entries)
	require.NoError(t, err)
	pos := got[PositionKey("p1", "AAPL")]
	require.NotNil(t, pos)
	assert.Equal(t, int64(15), pos.Quantity)
	assert.Equal(t, 150.0, pos.AverageCost)
	assert.Equal(t, 2250.0, pos.InvestedCapital)

	// The input slice is left in its original order.
	assert.Equal(t, "03", entries[0].ID)
}

func TestReplay_SeparatesPortfolios(t *testing.T) {
	e := NewEngine("")
	got, err := e.Replay([]*models.LedgerEntry{
		entry("01", "p1", "AAPL", models.SideBuy, 10, 100, t0),
		entry("02", "p2", "AAPL", models.SideBuy, 3, 50, t0),
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(3), got[PositionKey("p2", "aapl")].Quantity)
}

func TestReplay_CorruptLedger(t *testing.T) {
	e := NewEngine("")
	_, err := e.Replay([]*models.LedgerEntry{
		entry("01", "p1", "AAPL", models.SideSell, 1, 100, t0),
	})
	assert.ErrorIs(t, err, models.ErrHoldingNotFound)

	_, err = e.Replay([]*models.LedgerEntry{
		entry("01", "p1", "AAPL", models.Side("short"), 1, 100, t0),
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestVerify(t *testing.T) {
	e := NewEngine("")
	entries := []*models.LedgerEntry{
		entry("01", "p1", "AAPL", models.SideBuy, 10, 100, t0),
		entry("02", "p1", "MSFT", models.SideBuy, 4, 25, t0),
	}

	t.Run("consistent", func(t *testing.T) {
		stored := []*models.Position{
			{PortfolioID: "p1", Symbol: "AAPL", Quantity: 10, AverageCost: 100, InvestedCapital: 1000},
			{PortfolioID: "p1", Symbol: "MSFT", Quantity: 4, AverageCost: 25, InvestedCapital: 100},
		}
		got, err := e.Verify(stored, entries, 1e-9)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("drifted and missing", func(t *testing.T) {
		stored := []*models.Position{
			{PortfolioID: "p1", Symbol: "AAPL", Quantity: 11, AverageCost: 100, InvestedCapital: 1000},
			{PortfolioID: "p1", Symbol: "TSLA", Quantity: 1, AverageCost: 1, InvestedCapital: 1},
		}
		got, err := e.Verify(stored, entries, 1e-9)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "AAPL", got[0].Symbol)
		assert.Equal(t, "quantity", got[0].Field)
		assert.Equal(t, "TSLA", got[1].Symbol)
		assert.Equal(t, "MSFT", got[2].Symbol)
		assert.Contains(t, got[2].String(), "stored 0, ledger 4")
	})
}
