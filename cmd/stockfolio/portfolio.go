package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/stockfolio/internal/models"
)

func newPortfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Inspect portfolios",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every portfolio with its stored totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			portfolios, err := a.Storage.PortfolioStore().ListAll(cmd.Context())
			if err != nil {
				return err
			}
			renderPortfolios(cmd.OutOrStdout(), portfolios)
			return nil
		},
	}

	var refresh bool
	showCmd := &cobra.Command{
		Use:   "show <portfolio-id>",
		Short: "Show a portfolio's holdings",
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
			if refresh {
				if _, err := a.PortfolioService.RefreshPrices(ctx, args[0]); err != nil {
					return err
				}
			}
			d, err := a.PortfolioService.GetPortfolioDetails(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := d.Portfolio
			fmt.Fprintf(out, "%s (%s) owned by %s\n", p.Name, p.ID, p.UserID)
			fmt.Fprintf(out, "Value %s  Invested %s  Gain/Loss %s (%.2f%%)\n\n",
				money(p.TotalValue), money(p.TotalInvestment), money(p.GainLoss()), p.GainLossPct())
			renderHoldings(out, d.Positions)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&refresh, "refresh", false, "mark holdings to cached quotes first")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func renderPortfolios(w io.Writer, portfolios []*models.Portfolio) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Owner", "Name", "Value", "Invested", "Gain/Loss"})
	for _, p := range portfolios {
		table.Append([]string{p.ID, p.UserID, p.Name, money(p.TotalValue), money(p.TotalInvestment), money(p.GainLoss())})
	}
	table.Render()
}

func renderHoldings(w io.Writer, positions []*models.Position) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Qty", "Avg Cost", "Invested", "Value", "Gain/Loss", "Version"})
	for _, pos := range positions {
		table.Append([]string{
			pos.Symbol,
			strconv.FormatInt(pos.Quantity, 10),
			money(pos.AverageCost),
			money(pos.InvestedCapital),
			money(pos.CurrentValue),
			money(pos.GainLoss()),
			strconv.FormatInt(pos.Version, 10),
		})
	}
	table.Render()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
