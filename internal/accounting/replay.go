package accounting

import (
	"fmt"
	"math"
	"sort"

	"github.com/bobmcallan/stockfolio/internal/models"
)

// PositionKey identifies a position by portfolio and symbol.
func PositionKey(portfolioID, symbol string) string {
	return portfolioID + "/" + models.NormalizeSymbol(symbol)
}

// Replay rebuilds positions from ledger entries in (timestamp, id) order.
// Fully liquidated positions are absent from the result. The result must
// match the incrementally maintained positions.
func (e *Engine) Replay(entries []*models.LedgerEntry) (map[string]*models.Position, error) {
	positions := make(map[string]*models.Position)
	for _, entry := range chronological(entries) {
		if err := e.applyEntry(positions, entry); err != nil {
			return nil, err
		}
	}
	return positions, nil
}

// chronological returns a copy of entries sorted by (timestamp, id).
func chronological(entries []*models.LedgerEntry) []*models.LedgerEntry {
	sorted := make([]*models.LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func (e *Engine) applyEntry(positions map[string]*models.Position, entry *models.LedgerEntry) error {
	key := PositionKey(entry.PortfolioID, entry.Symbol)
	trade := models.Trade{
		PortfolioID: entry.PortfolioID,
		Symbol:      entry.Symbol,
		Quantity:    entry.Quantity,
		Price:       entry.Price,
	}

	var (
		t   *Transition
		err error
	)
	switch entry.Side {
	case models.SideBuy:
		t, err = e.ApplyBuy(positions[key], trade, entry.Timestamp)
	case models.SideSell:
		t, err = e.ApplySell(positions[key], trade, entry.Timestamp)
	default:
		err = fmt.Errorf("%w: unknown side %q", models.ErrInvalidInput, entry.Side)
	}
	if err != nil {
		return fmt.Errorf("replay entry %s: %w", entry.ID, err)
	}

	if t.Delete {
		delete(positions, key)
	} else {
		positions[key] = t.Position
	}
	return nil
}

// Discrepancy describes a stored position that disagrees with the ledger.
type Discrepancy struct {
	PortfolioID string
	Symbol      string
	Field       string
	Stored      float64
	Replayed    float64
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s/%s %s: stored %v, ledger %v", d.PortfolioID, d.Symbol, d.Field, d.Stored, d.Replayed)
}

// Verify replays entries and compares quantity, average cost and invested
// capital against stored. Values are compared within relative tolerance tol.
func (e *Engine) Verify(stored []*models.Position, entries []*models.LedgerEntry, tol float64) ([]Discrepancy, error) {
	replayed, err := e.Replay(entries)
	if err != nil {
		return nil, err
	}

	var out []Discrepancy
	seen := make(map[string]bool, len(stored))
	for _, pos := range stored {
		key := PositionKey(pos.PortfolioID, pos.Symbol)
		seen[key] = true
		want, ok := replayed[key]
		if !ok {
			out = append(out, Discrepancy{pos.PortfolioID, pos.Symbol, "quantity", float64(pos.Quantity), 0})
			continue
		}
		if pos.Quantity != want.Quantity {
			out = append(out, Discrepancy{pos.PortfolioID, pos.Symbol, "quantity", float64(pos.Quantity), float64(want.Quantity)})
		}
		if !approxEqual(pos.AverageCost, want.AverageCost, tol) {
			out = append(out, Discrepancy{pos.PortfolioID, pos.Symbol, "average_cost", pos.AverageCost, want.AverageCost})
		}
		if !approxEqual(pos.InvestedCapital, want.InvestedCapital, tol) {
			out = append(out, Discrepancy{pos.PortfolioID, pos.Symbol, "invested_capital", pos.InvestedCapital, want.InvestedCapital})
		}
	}

	keys := make([]string, 0, len(replayed))
	for key := range replayed {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		want := replayed[key]
		out = append(out, Discrepancy{want.PortfolioID, want.Symbol, "quantity", 0, float64(want.Quantity)})
	}
	return out, nil
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(math.Max(math.Abs(a), math.Abs(b)), 1)
}
