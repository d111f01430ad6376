package app

import (
	"context"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
)

// startPriceScheduler marks every portfolio to cached quotes on a fixed interval.
func startPriceScheduler(ctx context.Context, portfolioService interfaces.PortfolioService, storage interfaces.StorageManager, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("Price scheduler: started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Price scheduler: stopped")
			return
		case <-ticker.C:
			refreshAll(ctx, portfolioService, storage, logger)
		}
	}
}

// refreshAll refreshes each portfolio as its owner. Failures are logged and
// do not stop the sweep. Returns the number refreshed.
func refreshAll(ctx context.Context, portfolioService interfaces.PortfolioService, storage interfaces.StorageManager, logger *common.Logger) int {
	start := time.Now()

	portfolios, err := storage.PortfolioStore().ListAll(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Price refresh: failed to list portfolios")
		return 0
	}

	refreshed, stale := 0, 0
	for _, p := range portfolios {
		if ctx.Err() != nil {
			break
		}
		totals, err := portfolioService.RefreshPrices(common.WithUserID(ctx, p.UserID), p.ID)
		if err != nil {
			logger.Warn().Err(err).Str("portfolio_id", p.ID).Msg("Price refresh: portfolio failed")
			continue
		}
		refreshed++
		stale += totals.StaleQuotes
	}

	logger.Info().
		Int("portfolios", refreshed).
		Int("stale_quotes", stale).
		Dur("elapsed", time.Since(start)).
		Msg("Price refresh: complete")
	return refreshed
}
