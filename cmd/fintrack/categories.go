package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage transaction categories",
		Long:  `List, add, update, and delete the categories used to tag transactions.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
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

			categories, err := app.gateway.ListCategories(ctx)
			if err != nil {
				return err
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'fintrack categories add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "ID\tName\tType\tColor\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 20),
				strings.Repeat("-", 8),
				strings.Repeat("-", 8))

			for _, cat := range categories {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s %s\n",
					cat.ID, cat.Name, cat.Type, cli.RenderSwatch(cat.Color), cat.Color)
			}

			return nil
		},
	}
}

// categoryInputFlags collects the category create/update payload.
type categoryInputFlags struct {
	catType string
	color   string
}

func (f *categoryInputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.catType, "type", "expense", "category type (income, expense)")
	cmd.Flags().StringVar(&f.color, "color", "#6366f1", "hex color code")
}

func (f *categoryInputFlags) build(name string) model.CategoryInput {
	return model.CategoryInput{
		Name:  name,
		Type:  model.CategoryType(f.catType),
		Color: f.color,
	}
}

func addCategoryCmd() *cobra.Command {
	var inputFlags categoryInputFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.requireAuth(); err != nil {
				return err
			}

			created, err := app.finance.AddCategory(ctx, inputFlags.build(args[0]))
			if err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Added category #%d %s %s", created.ID, cli.RenderSwatch(created.Color), created.Name)))
			return nil
		},
	}

	inputFlags.register(cmd)

	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var inputFlags categoryInputFlags

	cmd := &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Replace a category",
		Long: `Replace a category's name, type, and color.

Note: an already-fetched category summary keeps the old name and color
until the next transaction mutation refreshes it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.requireAuth(); err != nil {
				return err
			}

			updated, err := app.finance.UpdateCategory(ctx, id, inputFlags.build(args[1]))
			if err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Updated category #%d %s %s", updated.ID, cli.RenderSwatch(updated.Color), updated.Name)))
			return nil
		},
	}

	inputFlags.register(cmd)

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Long: `Delete a category. Transactions that reference it are kept and will
show as "Uncategorized".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.requireAuth(); err != nil {
				return err
			}

			if err := app.finance.DeleteCategory(ctx, id); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Deleted category #%d", id)))
			return nil
		},
	}
}
