// Package accounting turns buy and sell requests into position transitions
// using the weighted-average-cost method. It performs no I/O.
package accounting

import (
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// Engine computes the next position state for a trade.
type Engine struct {
	// MarkPolicy is common.MarkTradePrice or common.MarkLastMark.
	MarkPolicy string
}

// NewEngine returns an Engine using the given mark policy. An empty policy
// means common.MarkTradePrice.
func NewEngine(markPolicy string) *Engine {
	if markPolicy == "" {
		markPolicy = common.MarkTradePrice
	}
	return &Engine{MarkPolicy: markPolicy}
}

// Transition is the outcome of one trade: the position to write (or a
// deletion) and the ledger entry to append alongside it.
type Transition struct {
	Position *models.Position
	Delete   bool
	Entry    *models.LedgerEntry

	// RealizedGain is set on sells only.
	RealizedGain float64
}

// ValidateTrade rejects non-positive quantities and non-finite or
// non-positive prices.
func ValidateTrade(trade models.Trade) error {
	if trade.PortfolioID == "" {
		return fmt.Errorf("%w: portfolio id is required", models.ErrInvalidInput)
	}
	if models.NormalizeSymbol(trade.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	}
	if trade.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", models.ErrInvalidInput, trade.Quantity)
	}
	if math.IsNaN(trade.Price) || math.IsInf(trade.Price, 0) || trade.Price <= 0 {
		return fmt.Errorf("%w: price must be positive, got %v", models.ErrInvalidInput, trade.Price)
	}
	return nil
}

// ApplyBuy adds trade to pos, or opens a new position when pos is nil.
// pos is not modified.
func (e *Engine) ApplyBuy(pos *models.Position, trade models.Trade, now time.Time) (*Transition, error) {
	if err := ValidateTrade(trade); err != nil {
		return nil, err
	}
	symbol := models.NormalizeSymbol(trade.Symbol)
	cost := float64(trade.Quantity) * trade.Price

	var next models.Position
	if pos == nil {
		next = models.Position{
			PortfolioID:     trade.PortfolioID,
			Symbol:          symbol,
			Quantity:        trade.Quantity,
			AverageCost:     trade.Price,
			InvestedCapital: cost,
			CurrentValue:    cost,
			CreatedAt:       now,
			UpdatedAt:       now,
			Version:         1,
		}
	} else {
		if err := samePosition(pos, trade.PortfolioID, symbol); err != nil {
			return nil, err
		}
		if pos.Quantity > math.MaxInt64-trade.Quantity {
			return nil, fmt.Errorf("%w: quantity overflow", models.ErrInvalidInput)
		}
		next = *pos
		next.Quantity = pos.Quantity + trade.Quantity
		next.InvestedCapital = pos.InvestedCapital + cost
		next.AverageCost = next.InvestedCapital / float64(next.Quantity)
		next.CurrentValue = e.mark(pos, next.Quantity, trade.Price)
		next.UpdatedAt = now
		next.Version = pos.Version + 1
	}

	t := &Transition{
		Position: &next,
		Entry:    newEntry(trade, symbol, models.SideBuy, now),
	}
	if err := checkFinite(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ApplySell removes trade.Quantity shares from pos. Selling every held share
// deletes the position; the average cost of remaining shares never changes.
func (e *Engine) ApplySell(pos *models.Position, trade models.Trade, now time.Time) (*Transition, error) {
	if err := ValidateTrade(trade); err != nil {
		return nil, err
	}
	symbol := models.NormalizeSymbol(trade.Symbol)
	if pos == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrHoldingNotFound, symbol)
	}
	if err := samePosition(pos, trade.PortfolioID, symbol); err != nil {
		return nil, err
	}
	if trade.Quantity > pos.Quantity {
		return nil, fmt.Errorf("%w: holding %d %s, selling %d", models.ErrInsufficientShares, pos.Quantity, symbol, trade.Quantity)
	}

	t := &Transition{
		Entry:        newEntry(trade, symbol, models.SideSell, now),
		RealizedGain: RealizedGain(pos, trade),
	}

	remaining := pos.Quantity - trade.Quantity
	if remaining == 0 {
		t.Delete = true
		if err := checkFinite(t); err != nil {
			return nil, err
		}
		return t, nil
	}

	soldFraction := float64(trade.Quantity) / float64(pos.Quantity)
	next := *pos
	next.Quantity = remaining
	next.InvestedCapital = pos.InvestedCapital * (1 - soldFraction)
	next.CurrentValue = e.mark(pos, remaining, trade.Price)
	next.UpdatedAt = now
	next.Version = pos.Version + 1
	t.Position = &next
	if err := checkFinite(t); err != nil {
		return nil, err
	}
	return t, nil
}

// RealizedGain is (trade price - average cost) * quantity. It is reported to
// callers and never stored.
func RealizedGain(pos *models.Position, trade models.Trade) float64 {
	if pos == nil {
		return 0
	}
	return (trade.Price - pos.AverageCost) * float64(trade.Quantity)
}

// CostBasisHolds reports whether InvestedCapital == Quantity * AverageCost
// within relative tolerance tol.
func CostBasisHolds(pos *models.Position, tol float64) bool {
	want := float64(pos.Quantity) * pos.AverageCost
	diff := math.Abs(pos.InvestedCapital - want)
	scale := math.Max(math.Abs(want), 1)
	return diff <= tol*scale
}

func (e *Engine) mark(prev *models.Position, qty int64, tradePrice float64) float64 {
	if e.MarkPolicy == common.MarkLastMark && prev != nil && prev.Quantity > 0 {
		return prev.MarkPrice() * float64(qty)
	}
	return float64(qty) * tradePrice
}

// checkFinite rejects transitions whose amounts overflowed float64. Finite
// inputs can still multiply out to Inf.
func checkFinite(t *Transition) error {
	values := []float64{t.Entry.TotalAmount, t.RealizedGain}
	if p := t.Position; p != nil {
		values = append(values, p.AverageCost, p.InvestedCapital, p.CurrentValue)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: trade value overflows", models.ErrInvalidInput)
		}
	}
	return nil
}

func samePosition(pos *models.Position, portfolioID, symbol string) error {
	if pos.PortfolioID != portfolioID || pos.Symbol != symbol {
		return fmt.Errorf("%w: trade %s/%s applied to position %s/%s",
			models.ErrInvalidInput, portfolioID, symbol, pos.PortfolioID, pos.Symbol)
	}
	return nil
}

func newEntry(trade models.Trade, symbol string, side models.Side, now time.Time) *models.LedgerEntry {
	return &models.LedgerEntry{
		PortfolioID: trade.PortfolioID,
		Symbol:      symbol,
		Side:        side,
		Quantity:    trade.Quantity,
		Price:       trade.Price,
		TotalAmount: float64(trade.Quantity) * trade.Price,
		Timestamp:   now,
	}
}
