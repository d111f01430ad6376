package interfaces

import (
	"context"
	"io"

	"github.com/bobmcallan/stockfolio/internal/models"
)

// TradeResult is returned by the trade operations.
type TradeResult struct {
	// Position is the state after the trade; nil when a sell liquidated it.
	Position *models.Position    `json:"holding"`
	Entry    *models.LedgerEntry `json:"transaction"`

	// RealizedGain is (price - average cost) * quantity for sells. It is
	// reported to the caller and never stored.
	RealizedGain float64 `json:"realized_gain,omitempty"`
}

// TradeService records buys and sells against a caller-owned portfolio.
type TradeService interface {
	AddHolding(ctx context.Context, portfolioID, symbol string, quantity int64, price float64) (*TradeResult, error)
	SellHolding(ctx context.Context, portfolioID, symbol string, quantity int64, price float64) (*TradeResult, error)
}

// PortfolioService manages portfolios and their read models.
type PortfolioService interface {
	CreatePortfolio(ctx context.Context, name, description string) (*models.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]*models.Portfolio, *models.DashboardSummary, error)
	GetPortfolioDetails(ctx context.Context, portfolioID string) (*models.PortfolioDetails, error)
	ListTransactions(ctx context.Context, portfolioID string, q LedgerQuery) ([]*models.LedgerEntry, error)
	DeletePortfolio(ctx context.Context, portfolioID string) error

	// Recompute rolls up the portfolio's positions and stores the totals.
	Recompute(ctx context.Context, portfolioID string) (*models.Totals, error)

	// RefreshPrices marks every position to its cached quote, then recomputes.
	RefreshPrices(ctx context.Context, portfolioID string) (*models.Totals, error)

	// OwnedPortfolio resolves the caller and returns the portfolio if they own it.
	OwnedPortfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error)

	// Reporting
	GetGrowth(ctx context.Context, portfolioID string) ([]models.GrowthPoint, error)
	Chart(ctx context.Context, portfolioID, kind string) ([]byte, error)
	ExportCSV(ctx context.Context, portfolioID string, w io.Writer) error
}

// QuoteService is the quote read/write path used by the UI layer.
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) (*models.Stock, error)
	GetQuotes(ctx context.Context, symbols []string) ([]*models.Stock, error)
	UpdateQuote(ctx context.Context, stock *models.Stock) (*models.Stock, error)
	SeedExamples(ctx context.Context) (int, error)
}

// WatchlistService manages the caller's watchlist.
type WatchlistService interface {
	List(ctx context.Context) ([]*models.WatchedStock, error)
	Add(ctx context.Context, symbol string) (*models.WatchlistItem, error)
	Remove(ctx context.Context, symbol string) error
}
