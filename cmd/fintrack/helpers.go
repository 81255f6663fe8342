package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"fintrack/internal/config"
	"fintrack/internal/finance"
	"fintrack/internal/gateway"
	"fintrack/internal/session"
	"fintrack/internal/storage"
)

// app bundles the wired-up stores for a command invocation.
type app struct {
	session  *session.Store
	gateway  *gateway.Client
	finance  *finance.Store
	keystore *storage.SQLiteKeystore
}

// Close releases the keystore.
func (a *app) Close() error {
	return a.keystore.Close()
}

// initKeystore opens the durable session keystore with auto-migration.
func initKeystore(ctx context.Context) (*storage.SQLiteKeystore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = filepath.Join(config.DefaultDataDir(), "fintrack.db")
	}
	dbPath = config.ExpandPath(dbPath)

	keystore, err := storage.NewSQLiteKeystore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := keystore.Migrate(ctx); err != nil {
		_ = keystore.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return keystore, nil
}

// initApp wires the session store, gateway, and finance store together.
func initApp(ctx context.Context) (*app, error) {
	keystore, err := initKeystore(ctx)
	if err != nil {
		return nil, err
	}

	baseURL := viper.GetString("api.base_url")

	sess, err := session.NewStore(ctx, baseURL, keystore)
	if err != nil {
		_ = keystore.Close()
		return nil, err
	}

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL: baseURL,
		Timeout: viper.GetDuration("api.timeout"),
	}, sess)
	if err != nil {
		_ = keystore.Close()
		return nil, err
	}

	downloadDir := viper.GetString("download.dir")
	if downloadDir == "" {
		downloadDir = "."
	}

	store := finance.NewWithConfig(gw, finance.Config{
		DownloadDir: config.ExpandPath(downloadDir),
	})

	return &app{
		session:  sess,
		gateway:  gw,
		finance:  store,
		keystore: keystore,
	}, nil
}

// requireAuth fails fast when no session is held, before any network call.
func (a *app) requireAuth() error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in: run 'fintrack auth login' first")
	}
	return nil
}
