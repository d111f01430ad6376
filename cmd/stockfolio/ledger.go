package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/stockfolio/internal/accounting"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the trade ledger",
	}

	var (
		portfolioID string
		tolerance   float64
	)
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay the ledger and compare it with stored positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := verifyLedger(cmd.Context(), a.Storage, a.Engine, portfolioID, tolerance)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger and positions agree.")
				return nil
			}
			renderDiscrepancies(cmd.OutOrStdout(), found)
			return fmt.Errorf("%d discrepancies found", len(found))
		},
	}
	verifyCmd.Flags().StringVarP(&portfolioID, "portfolio", "p", "", "verify one portfolio (default: all)")
	verifyCmd.Flags().Float64Var(&tolerance, "tolerance", 1e-9, "relative tolerance for money fields")

	var output string
	exportCmd := &cobra.Command{
		Use:   "export <portfolio-id>",
		Short: "Write a portfolio's ledger as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, err := asOwner(cmd.Context(), a.Storage, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return a.PortfolioService.ExportCSV(ctx, args[0], w)
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	cmd.AddCommand(verifyCmd, exportCmd)
	return cmd
}

// verifyLedger checks one portfolio, or every portfolio when portfolioID is empty.
func verifyLedger(ctx context.Context, storage interfaces.StorageManager, engine *accounting.Engine, portfolioID string, tol float64) ([]accounting.Discrepancy, error) {
	var portfolios []*models.Portfolio
	if portfolioID != "" {
		p, err := storage.PortfolioStore().Get(ctx, portfolioID)
		if err != nil {
			return nil, fmt.Errorf("portfolio %s: %w", portfolioID, err)
		}
		portfolios = []*models.Portfolio{p}
	} else {
		all, err := storage.PortfolioStore().ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list portfolios: %w", err)
		}
		portfolios = all
	}

	var found []accounting.Discrepancy
	for _, p := range portfolios {
		positions, err := storage.PositionStore().List(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list positions of %s: %w", p.ID, err)
		}
		entries, err := storage.LedgerStore().List(ctx, p.ID, interfaces.LedgerQuery{Order: interfaces.OrderAsc})
		if err != nil {
			return nil, fmt.Errorf("list ledger of %s: %w", p.ID, err)
		}
		d, err := engine.Verify(positions, entries, tol)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", p.ID, err)
		}
		found = append(found, d...)
	}
	return found, nil
}

func renderDiscrepancies(w io.Writer, found []accounting.Discrepancy) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Portfolio", "Symbol", "Field", "Stored", "Ledger"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, d := range found {
		table.Append([]string{
			d.PortfolioID,
			d.Symbol,
			d.Field,
			strconv.FormatFloat(d.Stored, 'f', -1, 64),
			strconv.FormatFloat(d.Replayed, 'f', -1, 64),
		})
	}
	table.Render()
}

// asOwner returns ctx acting as the owner of portfolioID, for operator
// commands that go through the user-scoped services.
func asOwner(ctx context.Context, storage interfaces.StorageManager, portfolioID string) (context.Context, error) {
	p, err := storage.PortfolioStore().Get(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, err)
	}
	return common.WithUserID(ctx, p.UserID), nil
}
