// Package trade records buys and sells through the accounting engine
package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/stockfolio/internal/accounting"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// Compile-time interface check
var _ interfaces.TradeService = (*Service)(nil)

// Service implements TradeService. The read, compute and commit steps of a
// trade run under a per-position lock; the committer's version check
// catches writers outside this process.
type Service struct {
	storage interfaces.StorageManager
	engine  *accounting.Engine
	logger  *common.Logger
	locks   keyLocks
	now     func() time.Time
}

// NewService creates a new trade service.
func NewService(storage interfaces.StorageManager, engine *accounting.Engine, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		engine:  engine,
		logger:  logger,
		now:     time.Now,
	}
}

// AddHolding buys quantity shares of symbol at price.
func (s *Service) AddHolding(ctx context.Context, portfolioID, symbol string, quantity int64, price float64) (*interfaces.TradeResult, error) {
	return s.execute(ctx, models.SideBuy, models.Trade{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
	})
}

// SellHolding sells quantity shares of symbol at price. Oversized sells are
// rejected whole with models.ErrInsufficientShares.
func (s *Service) SellHolding(ctx context.Context, portfolioID, symbol string, quantity int64, price float64) (*interfaces.TradeResult, error) {
	return s.execute(ctx, models.SideSell, models.Trade{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
	})
}

func (s *Service) execute(ctx context.Context, side models.Side, trade models.Trade) (*interfaces.TradeResult, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if err := accounting.ValidateTrade(trade); err != nil {
		return nil, err
	}
	trade.Symbol = models.NormalizeSymbol(trade.Symbol)

	if err := s.checkOwner(ctx, userID, trade.PortfolioID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(accounting.PositionKey(trade.PortfolioID, trade.Symbol))
	defer unlock()

	current, err := s.storage.PositionStore().Get(ctx, trade.PortfolioID, trade.Symbol)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to load position: %w", err)
		}
		current = nil
	}

	var t *accounting.Transition
	if side == models.SideBuy {
		t, err = s.engine.ApplyBuy(current, trade, s.now().UTC())
	} else {
		t, err = s.engine.ApplySell(current, trade, s.now().UTC())
	}
	if err != nil {
		return nil, err
	}
	if current == nil && t.Position != nil {
		if t.Position.Version, err = s.reopenVersion(ctx, trade.PortfolioID, trade.Symbol); err != nil {
			return nil, err
		}
	}

	commit := &interfaces.TradeCommit{
		PortfolioID: trade.PortfolioID,
		Symbol:      trade.Symbol,
		Entry:       t.Entry,
	}
	if current != nil {
		commit.ExpectedVersion = current.Version
	}
	if !t.Delete {
		commit.Position = t.Position
	}

	if err := s.storage.TradeCommitter().CommitTrade(ctx, commit); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Warn().
				Str("portfolio_id", trade.PortfolioID).
				Str("symbol", trade.Symbol).
				Msg("Trade rejected: position changed concurrently")
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit trade: %w", err)
	}

	s.logger.Info().
		Str("portfolio_id", trade.PortfolioID).
		Str("symbol", trade.Symbol).
		Str("side", string(side)).
		Int64("quantity", trade.Quantity).
		Float64("price", trade.Price).
		Str("entry_id", t.Entry.ID).
		Msg("Trade recorded")

	result := &interfaces.TradeResult{
		Entry:        t.Entry,
		RealizedGain: t.RealizedGain,
	}
	if !t.Delete {
		result.Position = t.Position
	}
	return result, nil
}

// reopenVersion numbers a newly opened position after every earlier trade on
// the key, so versions keep rising across liquidation and a commit computed
// from a liquidated position can never match a re-opened one.
func (s *Service) reopenVersion(ctx context.Context, portfolioID, symbol string) (int64, error) {
	prior, err := s.storage.LedgerStore().List(ctx, portfolioID, interfaces.LedgerQuery{Symbol: symbol})
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger: %w", err)
	}
	return int64(len(prior)) + 1, nil
}

// checkOwner returns models.ErrPortfolioNotFound both for missing portfolios
// and for portfolios owned by someone else.
func (s *Service) checkOwner(ctx context.Context, userID, portfolioID string) error {
	p, err := s.storage.PortfolioStore().Get(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrPortfolioNotFound
		}
		return fmt.Errorf("failed to load portfolio: %w", err)
	}
	if p.UserID != userID {
		return models.ErrPortfolioNotFound
	}
	return nil
}
