package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/stockfolio/internal/common"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stockfolio %s (build %s, commit %s)\n",
				common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		},
	}
}
