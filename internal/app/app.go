package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/stockfolio/internal/accounting"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/services/portfolio"
	"github.com/bobmcallan/stockfolio/internal/services/quote"
	"github.com/bobmcallan/stockfolio/internal/services/trade"
	"github.com/bobmcallan/stockfolio/internal/services/watchlist"
	"github.com/bobmcallan/stockfolio/internal/storage"
)

// App holds all initialized services and storage.
// It is the shared core used by the HTTP server and the CLI commands.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	Engine           *accounting.Engine
	TradeService     interfaces.TradeService
	PortfolioService interfaces.PortfolioService
	QuoteService     interfaces.QuoteService
	WatchlistService interfaces.WatchlistService
	StartupTime      time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath when set, otherwise STOCKFOLIO_CONFIG,
// then stockfolio.toml beside the binary, then config/stockfolio.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("STOCKFOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "stockfolio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stockfolio.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes storage and services.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig initializes storage and services from a loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	engine := accounting.NewEngine(config.Accounting.MarkPolicy)
	quoteService := quote.NewService(storageManager, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		Engine:           engine,
		TradeService:     trade.NewService(storageManager, engine, logger),
		PortfolioService: portfolio.NewService(storageManager, engine, logger, config.Accounting.RecentActivityLimit),
		QuoteService:     quoteService,
		WatchlistService: watchlist.NewService(storageManager, logger),
		StartupTime:      startupStart,
	}

	if config.Market.SeedExamples {
		if _, err := quoteService.SeedExamples(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to seed example quotes")
		}
	}

	logger.Info().
		Str("backend", config.Storage.Backend).
		Str("mark_policy", engine.MarkPolicy).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// StartPriceScheduler launches the background refresh goroutine when
// market.refresh_interval is set.
func (a *App) StartPriceScheduler() {
	interval := a.Config.Market.GetRefreshInterval()
	if interval <= 0 {
		return
	}
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startPriceScheduler(schedulerCtx, a.PortfolioService, a.Storage, a.Logger, interval)
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
