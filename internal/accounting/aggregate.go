package accounting

import (
	"time"

	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/shopspring/decimal"
)

// Aggregate sums CurrentValue and InvestedCapital over positions. Sums are
// accumulated in decimal so the totals do not depend on position order.
func Aggregate(portfolioID string, positions []*models.Position, now time.Time) *models.Totals {
	value := decimal.Zero
	invested := decimal.Zero
	for _, p := range positions {
		value = value.Add(decimal.NewFromFloat(p.CurrentValue))
		invested = invested.Add(decimal.NewFromFloat(p.InvestedCapital))
	}
	return &models.Totals{
		PortfolioID:     portfolioID,
		TotalValue:      value.InexactFloat64(),
		TotalInvestment: invested.InexactFloat64(),
		Positions:       len(positions),
		RefreshedAt:     now,
	}
}

// Summarize rolls the stored totals of several portfolios into a dashboard
// summary. GainLossPct is 0 when nothing is invested.
func Summarize(portfolios []*models.Portfolio) *models.DashboardSummary {
	value := decimal.Zero
	invested := decimal.Zero
	for _, p := range portfolios {
		value = value.Add(decimal.NewFromFloat(p.TotalValue))
		invested = invested.Add(decimal.NewFromFloat(p.TotalInvestment))
	}

	gain := value.Sub(invested)
	pct := decimal.Zero
	if invested.IsPositive() {
		pct = gain.Div(invested).Mul(decimal.NewFromInt(100))
	}

	return &models.DashboardSummary{
		Portfolios:      len(portfolios),
		TotalValue:      value.InexactFloat64(),
		TotalInvestment: invested.InexactFloat64(),
		GainLoss:        gain.InexactFloat64(),
		GainLossPct:     pct.InexactFloat64(),
	}
}

// Growth replays entries and samples total cost and value after each trade.
// Value marks every open position at the last traded price of its symbol.
// Entries from several portfolios are summed together.
func (e *Engine) Growth(entries []*models.LedgerEntry) ([]models.GrowthPoint, error) {
	sorted := chronological(entries)
	points := make([]models.GrowthPoint, 0, len(sorted))
	positions := make(map[string]*models.Position)
	lastPrice := make(map[string]float64)

	for _, entry := range sorted {
		if err := e.applyEntry(positions, entry); err != nil {
			return nil, err
		}
		lastPrice[PositionKey(entry.PortfolioID, entry.Symbol)] = entry.Price

		cost := decimal.Zero
		value := decimal.Zero
		for key, pos := range positions {
			cost = cost.Add(decimal.NewFromFloat(pos.InvestedCapital))
			value = value.Add(decimal.NewFromFloat(lastPrice[key]).Mul(decimal.NewFromInt(pos.Quantity)))
		}
		points = append(points, models.GrowthPoint{
			Date:       entry.Timestamp,
			TotalValue: value.InexactFloat64(),
			TotalCost:  cost.InexactFloat64(),
		})
	}
	return points, nil
}
