package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/model"
	"fintrack/internal/service"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
		Long:  `List, add, update, and delete income and expense transactions.`,
	}

	cmd.AddCommand(txListCmd())
	cmd.AddCommand(txAddCmd())
	cmd.AddCommand(txUpdateCmd())
	cmd.AddCommand(txDeleteCmd())

	return cmd
}

// txFilterFlags collects the verbatim list filter parameters.
type txFilterFlags struct {
	category  int64
	txType    string
	search    string
	startDate string
	endDate   string
	minAmount float64
	maxAmount float64
	ordering  string
}

func (f *txFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.category, "category", 0, "filter by category id")
	cmd.Flags().StringVar(&f.txType, "type", "", "filter by type (income, expense)")
	cmd.Flags().StringVar(&f.search, "search", "", "search in title and description")
	cmd.Flags().StringVar(&f.startDate, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.endDate, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&f.minAmount, "min", 0, "minimum amount")
	cmd.Flags().Float64Var(&f.maxAmount, "max", 0, "maximum amount")
	cmd.Flags().StringVar(&f.ordering, "order", "", "ordering field (created_at, amount, category; prefix - to reverse)")
}

func (f *txFilterFlags) build(cmd *cobra.Command) (service.TransactionFilter, error) {
	var filter service.TransactionFilter

	if cmd.Flags().Changed("category") {
		filter.CategoryID = &f.category
	}
	if f.txType != "" {
		filter.Type = model.CategoryType(f.txType)
	}
	filter.Search = f.search
	filter.Ordering = f.ordering

	if f.startDate != "" {
		t, err := time.Parse("2006-01-02", f.startDate)
		if err != nil {
			return filter, fmt.Errorf("invalid --from date %q: use YYYY-MM-DD", f.startDate)
		}
		filter.StartDate = &t
	}
	if f.endDate != "" {
		t, err := time.Parse("2006-01-02", f.endDate)
		if err != nil {
			return filter, fmt.Errorf("invalid --to date %q: use YYYY-MM-DD", f.endDate)
		}
		filter.EndDate = &t
	}
	if cmd.Flags().Changed("min") {
		filter.MinAmount = &f.minAmount
	}
	if cmd.Flags().Changed("max") {
		filter.MaxAmount = &f.maxAmount
	}

	return filter, nil
}

func txListCmd() *cobra.Command {
	var filterFlags txFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Long:  `List transactions, newest first. Filters are applied by the server.`,
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

			filter, err := filterFlags.build(cmd)
			if err != nil {
				return err
			}

			transactions, err := app.gateway.ListTransactions(ctx, filter)
			if err != nil {
				return err
			}

			categories, err := app.gateway.ListCategories(ctx)
			if err != nil {
				return err
			}
			names := make(map[int64]string, len(categories))
			for _, cat := range categories {
				names[cat.ID] = cat.Name
			}

			if len(transactions) == 0 {
				fmt.Println(cli.InfoStyle.Render("No transactions found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "ID\tDate\tTitle\tCategory\tAmount\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 10),
				strings.Repeat("-", 24),
				strings.Repeat("-", 16),
				strings.Repeat("-", 10))

			for _, tx := range transactions {
				name := "Uncategorized"
				if tx.CategoryID != nil {
					if n, ok := names[*tx.CategoryID]; ok {
						name = n
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					tx.ID,
					tx.CreatedAt.Format("2006-01-02"),
					tx.Title,
					name,
					cli.RenderAmount(tx.Amount))
			}

			return nil
		},
	}

	filterFlags.register(cmd)

	return cmd
}

// txInputFlags collects the fields of a transaction create/update payload.
type txInputFlags struct {
	title       string
	description string
	amount      string
	txType      string
	category    int64
}

func (f *txInputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "transaction title")
	cmd.Flags().StringVar(&f.description, "description", "", "optional description")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount (sign is set by --type)")
	cmd.Flags().StringVar(&f.txType, "type", "expense", "transaction type (income, expense)")
	cmd.Flags().Int64Var(&f.category, "category", 0, "category id")
}

func (f *txInputFlags) build(cmd *cobra.Command) model.TransactionInput {
	input := model.TransactionInput{
		Title:       f.title,
		Description: f.description,
		Amount:      f.amount,
		Intent:      model.TransactionIntent(f.txType),
	}
	if cmd.Flags().Changed("category") {
		input.CategoryID = &f.category
	}
	return input
}

func txAddCmd() *cobra.Command {
	var inputFlags txInputFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Long: `Record a new transaction. The type sets the sign of the amount:
expenses are stored negative, income positive.`,
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

			created, err := app.finance.AddTransaction(ctx, inputFlags.build(cmd))
			if err != nil {
				return err
			}

			balance := app.finance.Balance()
			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Added #%d %q %s", created.ID, created.Title, created.Amount)))
			fmt.Printf("New balance: %s %s\n", cli.RenderAmount(balance.Balance), balance.Currency)
			return nil
		},
	}

	inputFlags.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func txUpdateCmd() *cobra.Command {
	var inputFlags txInputFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.requireAuth(); err != nil {
				return err
			}

			updated, err := app.finance.UpdateTransaction(ctx, id, inputFlags.build(cmd))
			if err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Updated #%d %q %s", updated.ID, updated.Title, updated.Amount)))
			return nil
		},
	}

	inputFlags.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func txDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.requireAuth(); err != nil {
				return err
			}

			if err := app.finance.DeleteTransaction(ctx, id); err != nil {
				return err
			}

			balance := app.finance.Balance()
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Deleted transaction #%d", id)))
			fmt.Printf("New balance: %s %s\n", cli.RenderAmount(balance.Balance), balance.Currency)
			return nil
		},
	}
}
