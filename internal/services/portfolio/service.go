// Package portfolio provides portfolio management, aggregation and reporting
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/stockfolio/internal/accounting"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// Service implements PortfolioService
type Service struct {
	storage     interfaces.StorageManager
	engine      *accounting.Engine
	logger      *common.Logger
	recentLimit int
	now         func() time.Time
}

// NewService creates a new portfolio service. recentLimit bounds the
// transactions returned with portfolio details.
func NewService(storage interfaces.StorageManager, engine *accounting.Engine, logger *common.Logger, recentLimit int) *Service {
	if recentLimit <= 0 {
		recentLimit = 20
	}
	return &Service{
		storage:     storage,
		engine:      engine,
		logger:      logger,
		recentLimit: recentLimit,
		now:         time.Now,
	}
}

// CreatePortfolio creates an empty portfolio owned by the caller.
func (s *Service) CreatePortfolio(ctx context.Context, name, description string) (*models.Portfolio, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: portfolio name is required", models.ErrInvalidInput)
	}

	p := &models.Portfolio{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.storage.PortfolioStore().Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	s.logger.Info().Str("portfolio_id", p.ID).Str("user_id", userID).Str("name", name).Msg("Portfolio created")
	return p, nil
}

// ListPortfolios returns the caller's portfolios with a dashboard summary of
// their stored totals.
func (s *Service) ListPortfolios(ctx context.Context) ([]*models.Portfolio, *models.DashboardSummary, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, nil, models.ErrUnauthenticated
	}
	portfolios, err := s.storage.PortfolioStore().ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	if portfolios == nil {
		portfolios = []*models.Portfolio{}
	}
	return portfolios, accounting.Summarize(portfolios), nil
}

// GetPortfolioDetails returns the portfolio, its positions and its most
// recent transactions, newest first.
func (s *Service) GetPortfolioDetails(ctx context.Context, portfolioID string) (*models.PortfolioDetails, error) {
	p, err := s.OwnedPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	positions, err := s.storage.PositionStore().List(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	entries, err := s.storage.LedgerStore().List(ctx, portfolioID, interfaces.LedgerQuery{
		Limit: s.recentLimit,
		Order: interfaces.OrderDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	if positions == nil {
		positions = []*models.Position{}
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	return &models.PortfolioDetails{
		Portfolio:    p,
		Positions:    positions,
		Transactions: entries,
	}, nil
}

// ListTransactions returns the portfolio's ledger filtered by q.
func (s *Service) ListTransactions(ctx context.Context, portfolioID string, q interfaces.LedgerQuery) ([]*models.LedgerEntry, error) {
	if _, err := s.OwnedPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}

	switch q.Order {
	case "":
		q.Order = interfaces.OrderDesc
	case interfaces.OrderAsc, interfaces.OrderDesc:
	default:
		return nil, fmt.Errorf("%w: order must be %q or %q", models.ErrInvalidInput, interfaces.OrderAsc, interfaces.OrderDesc)
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", models.ErrInvalidInput)
	}
	q.Symbol = models.NormalizeSymbol(q.Symbol)

	entries, err := s.storage.LedgerStore().List(ctx, portfolioID, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	return entries, nil
}

// DeletePortfolio removes the portfolio with its positions and ledger.
func (s *Service) DeletePortfolio(ctx context.Context, portfolioID string) error {
	if _, err := s.OwnedPortfolio(ctx, portfolioID); err != nil {
		return err
	}

	counts, err := s.storage.PurgePortfolio(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	s.logger.Info().
		Str("portfolio_id", portfolioID).
		Int("positions", counts["positions"]).
		Int("ledger", counts["ledger"]).
		Msg("Portfolio deleted")
	return nil
}

// Recompute rolls up the portfolio's positions and stores the totals.
func (s *Service) Recompute(ctx context.Context, portfolioID string) (*models.Totals, error) {
	if _, err := s.OwnedPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.recompute(ctx, portfolioID)
}

func (s *Service) recompute(ctx context.Context, portfolioID string) (*models.Totals, error) {
	positions, err := s.storage.PositionStore().List(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	totals := accounting.Aggregate(portfolioID, positions, s.now().UTC())
	if err := s.storage.PortfolioStore().UpdateTotals(ctx, totals); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to store totals: %w", err)
	}

	s.logger.Debug().
		Str("portfolio_id", portfolioID).
		Float64("total_value", totals.TotalValue).
		Float64("total_investment", totals.TotalInvestment).
		Msg("Portfolio totals recomputed")
	return totals, nil
}

// RefreshPrices marks every position to its cached quote, then recomputes.
// Positions without a cached quote keep their last value. Quotes older than
// common.FreshnessQuote are still applied and counted in StaleQuotes.
func (s *Service) RefreshPrices(ctx context.Context, portfolioID string) (*models.Totals, error) {
	if _, err := s.OwnedPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}

	positions, err := s.storage.PositionStore().List(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}

	stale := 0
	if len(symbols) > 0 {
		quotes, err := s.storage.StockStore().GetBatch(ctx, symbols)
		if err != nil {
			return nil, fmt.Errorf("failed to load quotes: %w", err)
		}
		for _, q := range quotes {
			err := s.storage.PositionStore().MarkToMarket(ctx, portfolioID, q.Symbol, q.CurrentPrice)
			if err != nil {
				// Sold out since the list was read.
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("failed to mark %s: %w", q.Symbol, err)
			}
			if !common.IsFresh(q.LastUpdated, common.FreshnessQuote) {
				stale++
			}
		}
		if missing := len(symbols) - len(quotes); missing > 0 {
			s.logger.Debug().Str("portfolio_id", portfolioID).Int("missing", missing).Msg("Positions without a cached quote")
		}
	}

	totals, err := s.recompute(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	totals.StaleQuotes = stale
	if stale > 0 {
		s.logger.Warn().Str("portfolio_id", portfolioID).Int("stale_quotes", stale).Msg("Refreshed with stale quotes")
	}
	return totals, nil
}

// OwnedPortfolio resolves the caller and returns the portfolio if they own
// it. Portfolios owned by someone else are reported as not found.
func (s *Service) OwnedPortfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if portfolioID == "" {
		return nil, models.ErrPortfolioNotFound
	}

	p, err := s.storage.PortfolioStore().Get(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if p.UserID != userID {
		return nil, models.ErrPortfolioNotFound
	}
	return p, nil
}

// GetGrowth samples cost and value after every trade in the portfolio.
func (s *Service) GetGrowth(ctx context.Context, portfolioID string) ([]models.GrowthPoint, error) {
	if _, err := s.OwnedPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	entries, err := s.storage.LedgerStore().List(ctx, portfolioID, interfaces.LedgerQuery{Order: interfaces.OrderAsc})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return s.engine.Growth(entries)
}

// Chart renders the portfolio as a PNG: ChartAllocation (current value by
// symbol) or ChartGrowth (value and cost over time).
func (s *Service) Chart(ctx context.Context, portfolioID, kind string) ([]byte, error) {
	switch kind {
	case "", ChartAllocation:
		if _, err := s.OwnedPortfolio(ctx, portfolioID); err != nil {
			return nil, err
		}
		positions, err := s.storage.PositionStore().List(ctx, portfolioID)
		if err != nil {
			return nil, fmt.Errorf("failed to list positions: %w", err)
		}
		return RenderAllocationChart(positions)
	case ChartGrowth:
		points, err := s.GetGrowth(ctx, portfolioID)
		if err != nil {
			return nil, err
		}
		return RenderGrowthChart(points)
	default:
		return nil, fmt.Errorf("%w: unknown chart %q", models.ErrInvalidInput, kind)
	}
}

// ExportCSV writes the portfolio's full ledger, oldest first, as CSV.
func (s *Service) ExportCSV(ctx context.Context, portfolioID string, w io.Writer) error {
	entries, err := s.ListTransactions(ctx, portfolioID, interfaces.LedgerQuery{Order: interfaces.OrderAsc})
	if err != nil {
		return err
	}
	return WriteLedgerCSV(w, entries)
}
