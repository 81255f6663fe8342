package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/common"
)

func exportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export <csv|excel>",
		Short: "Export transactions to a file",
		Long: `Download your transactions as CSV or Excel. The file content is
produced by the server and written verbatim.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"csv", "excel"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format := args[0]

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.requireAuth(); err != nil {
				return err
			}

			if outDir != "" {
				// A one-off destination overrides the configured
				// download directory.
				app.finance.SetDownloadDir(outDir)
			}

			var path string
			switch format {
			case "csv":
				path, err = app.finance.ExportCSV(ctx)
			case "excel":
				path, err = app.finance.ExportExcel(ctx)
			default:
				return fmt.Errorf("unknown export format %q: use csv or excel", format)
			}

			if err != nil {
				// Export failure is a warning, not a fatal error: no
				// application state is affected.
				var exportErr *common.ExportError
				if errors.As(err, &exportErr) {
					fmt.Println(cli.WarningStyle.Render(exportErr.Error()))
					return nil
				}
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Exported to %s", path)))
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "destination directory (default from config)")

	return cmd
}
