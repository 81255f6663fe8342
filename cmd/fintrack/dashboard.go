package main

import (
	"github.com/spf13/cobra"

	"fintrack/internal/tui"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Long: `Open a full-screen dashboard showing your balance, this month's
spending by category, and recent transactions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.requireAuth(); err != nil {
				return err
			}

			return tui.Run(app.finance)
		},
	}
}
