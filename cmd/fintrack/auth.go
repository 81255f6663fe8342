package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"fintrack/internal/cli"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage your session",
		Long:  `Log in, register, inspect, and tear down your session with the finance API.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authRegisterCmd())
	cmd.AddCommand(authLogoutCmd())
	cmd.AddCommand(authStatusCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username := args[0]

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if password == "" {
				password, err = readPassword("Password: ")
				if err != nil {
					return err
				}
			}

			if err := app.session.Login(ctx, username, password); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Logged in as %s", username)))
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")

	return cmd
}

func authRegisterCmd() *cobra.Command {
	var (
		email    string
		password string
		currency string
	)

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Register a new account",
		Long: `Register a new account with the finance API.

Registration does not log you in; follow up with 'fintrack auth login'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username := args[0]

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if password == "" {
				password, err = readPassword("Password: ")
				if err != nil {
					return err
				}
			}
			if currency == "" {
				currency = viper.GetString("currency")
			}

			if err := app.session.Register(ctx, username, email, password, currency); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Registered %s, log in with 'fintrack auth login %s'", username, username)))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 display currency (default from config)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			app.session.Logout(ctx)
			fmt.Println(cli.SuccessStyle.Render("Logged out"))
			return nil
		},
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if !app.session.IsAuthenticated() {
				fmt.Println(cli.SubtleStyle.Render("Not logged in"))
				return nil
			}

			fmt.Printf("Logged in as %s\n", cli.InfoStyle.Render(app.session.CurrentUser()))
			if expiry, err := app.session.TokenExpiry(); err == nil {
				fmt.Printf("Access token expires %s\n", cli.SubtleStyle.Render(expiry.Local().Format("2006-01-02 15:04:05")))
			}
			return nil
		},
	}
}

// readPassword prompts for a password without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(string(data))
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}
