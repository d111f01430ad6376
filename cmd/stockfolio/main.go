// Command stockfolio runs the portfolio accounting server and its
// maintenance tools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/stockfolio/internal/app"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stockfolio",
		Short:         "Portfolio and position accounting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: $STOCKFOLIO_CONFIG, then stockfolio.toml beside the binary, then config/stockfolio.toml)")

	root.AddCommand(
		newServeCmd(),
		newConfigCmd(),
		newLedgerCmd(),
		newPortfolioCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return root
}

// openApp initializes the application from the --config flag.
func openApp() (*app.App, error) {
	a, err := app.NewApp(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
