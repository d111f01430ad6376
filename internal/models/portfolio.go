// Package models defines data structures for Stockfolio
package models

import (
	"strings"
	"time"
)

// NormalizeSymbol trims and upper-cases a ticker symbol ("aapl " -> "AAPL").
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Portfolio is a named collection of positions owned by one user.
// TotalValue and TotalInvestment are a denormalized summary refreshed by
// the aggregator; they can lag behind the positions between refreshes.
type Portfolio struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	TotalValue      float64   `json:"total_value"`
	TotalInvestment float64   `json:"total_investment"`
	CreatedAt       time.Time `json:"created_at"`
	RefreshedAt     time.Time `json:"refreshed_at,omitempty"`
}

// GainLoss returns TotalValue - TotalInvestment.
func (p Portfolio) GainLoss() float64 {
	return p.TotalValue - p.TotalInvestment
}

// GainLossPct returns the gain/loss as a percentage of TotalInvestment, or 0
// when nothing is invested.
func (p Portfolio) GainLossPct() float64 {
	if p.TotalInvestment <= 0 {
		return 0
	}
	return p.GainLoss() / p.TotalInvestment * 100
}

// Position is the current holding of one symbol within one portfolio.
// A position with zero quantity is never stored; full liquidation deletes it.
type Position struct {
	PortfolioID     string    `json:"portfolio_id"`
	Symbol          string    `json:"symbol"`
	Quantity        int64     `json:"quantity"`
	AverageCost     float64   `json:"average_cost"`     // cost basis per held share
	InvestedCapital float64   `json:"invested_capital"` // quantity * average_cost
	CurrentValue    float64   `json:"current_value"`    // last known market value, possibly stale
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// GainLoss returns CurrentValue - InvestedCapital.
func (p Position) GainLoss() float64 {
	return p.CurrentValue - p.InvestedCapital
}

// GainLossPct returns the unrealized gain/loss as a percentage of invested capital.
func (p Position) GainLossPct() float64 {
	if p.InvestedCapital <= 0 {
		return 0
	}
	return p.GainLoss() / p.InvestedCapital * 100
}

// MarkPrice returns the per-share price implied by CurrentValue.
func (p Position) MarkPrice() float64 {
	if p.Quantity == 0 {
		return 0
	}
	return p.CurrentValue / float64(p.Quantity)
}

// Side is the direction of a ledger entry.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is buy or sell.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// LedgerEntry is an immutable record of a single trade.
type LedgerEntry struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`
	TotalAmount float64   `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// Trade is a caller-supplied buy or sell request. The price is taken as
// given; it is never looked up or re-validated against a quote.
type Trade struct {
	PortfolioID string  `json:"portfolio_id"`
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
}

// Totals is the aggregator's rollup of a portfolio's positions.
type Totals struct {
	PortfolioID     string    `json:"portfolio_id"`
	TotalValue      float64   `json:"total_value"`
	TotalInvestment float64   `json:"total_investment"`
	Positions       int       `json:"positions"`
	RefreshedAt     time.Time `json:"refreshed_at"`

	// StaleQuotes counts positions marked from quotes older than the freshness TTL.
	StaleQuotes int `json:"stale_quotes,omitempty"`
}

// GrowthPoint is one sample of the portfolio's history, taken after a trade.
type GrowthPoint struct {
	Date       time.Time `json:"date"`
	TotalValue float64   `json:"total_value"`
	TotalCost  float64   `json:"total_cost"`
}

// PortfolioDetails is the read model for a single portfolio view.
type PortfolioDetails struct {
	Portfolio    *Portfolio     `json:"portfolio"`
	Positions    []*Position    `json:"holdings"`
	Transactions []*LedgerEntry `json:"transactions"` // newest first
}

// DashboardSummary aggregates the stored totals of all of a user's portfolios.
type DashboardSummary struct {
	Portfolios      int     `json:"portfolios"`
	TotalValue      float64 `json:"total_value"`
	TotalInvestment float64 `json:"total_investment"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPct     float64 `json:"gain_loss_pct"`
}
