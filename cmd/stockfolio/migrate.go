package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/stockfolio/internal/app"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "migrate --to <config>",
		Short: "Copy all data from the configured store into another",
		Long: "Copies users, portfolios, positions, ledger entries, watchlists and quotes " +
			"from the store named by --config into the store named by --to. The target should be empty.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcCfg, err := common.LoadConfig(app.ResolveConfigPath(configPath))
			if err != nil {
				return fmt.Errorf("source config: %w", err)
			}
			if _, err := os.Stat(target); err != nil {
				return fmt.Errorf("target config: %w", err)
			}
			dstCfg, err := common.LoadConfig(target)
			if err != nil {
				return fmt.Errorf("target config: %w", err)
			}
			logger := common.NewLoggerFromConfig(srcCfg.Logging)

			src, err := storage.NewStorageManager(logger, srcCfg)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()
			dst, err := storage.NewStorageManager(logger, dstCfg)
			if err != nil {
				return fmt.Errorf("open target: %w", err)
			}
			defer dst.Close()

			counts, err := storage.Migrate(cmd.Context(), logger, src, dst)
			renderCounts(cmd, counts)
			return err
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "config file describing the target store")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func renderCounts(cmd *cobra.Command, counts map[string]int) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Records", "Copied"})
	for _, k := range kinds {
		table.Append([]string{k, strconv.Itoa(counts[k])})
	}
	table.Render()
}
