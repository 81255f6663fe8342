package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/model"
	"fintrack/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX (Quicken) statement files exported
from your bank. Each statement line is created on the server as a regular
transaction; amounts keep the sign from the statement.

Examples:
  # Import a single file
  fintrack import-ofx ~/Downloads/checking_jan.qfx

  # Import everything in a directory
  fintrack import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "preview import without creating anything")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	parser := ofx.NewParser()

	var inputs []model.TransactionInput
	for _, file := range allFiles {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", file, err)
		}
		parsed, err := parser.ParseFile(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		slog.Info("Parsed statement", "file", file, "transactions", len(parsed))
		inputs = append(inputs, parsed...)
	}

	if len(inputs) == 0 {
		fmt.Println(cli.InfoStyle.Render("No transactions found in the given files."))
		return nil
	}

	if dryRun {
		fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Would import %d transactions:", len(inputs))))
		for _, input := range inputs {
			fmt.Printf("  %-32s %s\n", input.Title, input.Amount)
		}
		return nil
	}

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if err := app.requireAuth(); err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(inputs)), "importing")

	var imported, failed int
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := app.finance.AddTransaction(ctx, input); err != nil {
			failed++
			slog.Warn("Failed to import transaction", "title", input.Title, "error", err)
		} else {
			imported++
		}
		_ = bar.Add(1)
	}

	fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Imported %d transactions", imported)))
	if failed > 0 {
		fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("%d transactions failed, see the log above", failed)))
	}

	balance := app.finance.Balance()
	fmt.Printf("New balance: %s %s\n", cli.RenderAmount(balance.Balance), balance.Currency)

	return nil
}
