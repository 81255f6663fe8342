// Package finance implements the client-side state store for transactions,
// categories, and the derived aggregate snapshot.
package finance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/common"
	"fintrack/internal/model"
	"fintrack/internal/service"

	"golang.org/x/sync/errgroup"
)

// Store owns the in-memory collections of transactions and categories and
// the aggregate snapshot, and keeps them consistent across mutations
// against the remote authority.
//
// The aggregates are never computed locally. After every transaction
// mutation they are re-fetched from the remote authority and committed
// together before the mutation is reported complete; the remote ledger,
// not this cache, is the source of truth for financial totals.
type Store struct {
	gw          service.Gateway
	logger      *slog.Logger
	downloadDir string

	// opMu serializes composite operations: no two mutations from the
	// same store may be in flight at once.
	opMu sync.Mutex

	// mu guards everything below.
	mu           sync.RWMutex
	gen          uint64
	transactions []model.Transaction
	categories   []model.Category
	balance      model.Balance
	summary      []model.CategorySummaryEntry
	history      []model.BalancePoint
	initialized  bool
	loading      bool
	lastErr      string
}

// Config holds configuration options for the finance store.
type Config struct {
	// DownloadDir is where export artifacts are written.
	DownloadDir string
}

// New creates a finance store with default configuration.
func New(gw service.Gateway) *Store {
	return NewWithConfig(gw, Config{})
}

// NewWithConfig creates a finance store with custom configuration.
func NewWithConfig(gw service.Gateway, cfg Config) *Store {
	dir := cfg.DownloadDir
	if dir == "" {
		dir = "."
	}
	return &Store{
		gw:          gw,
		downloadDir: dir,
		logger:      slog.Default().With("component", "finance"),
	}
}

// Initialize fetches categories, transactions, and the three aggregates
// concurrently and commits all five results atomically. If any fetch
// fails nothing is committed and the store stays unpopulated.
func (s *Store) Initialize(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	gen := s.begin()

	var (
		categories   []model.Category
		transactions []model.Transaction
		balance      *model.Balance
		summary      []model.CategorySummaryEntry
		history      []model.BalancePoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.gw.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = s.gw.ListTransactions(gctx, service.TransactionFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		balance, err = s.gw.Balance(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.gw.CategorySummary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.gw.BalanceHistory(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return s.fail(err, "Failed to load dashboard data")
	}

	s.mu.Lock()
	if s.gen == gen {
		s.categories = categories
		s.transactions = transactions
		s.balance = *balance
		s.summary = summary
		s.history = history
		s.initialized = true
	}
	s.mu.Unlock()

	s.logger.Info("Initialized finance state",
		"transactions", len(transactions),
		"categories", len(categories))

	s.complete()
	return nil
}

// AddTransaction validates and creates a transaction, prepends it to the
// local collection, then refreshes all three aggregates before returning.
// On any failure the local collection is left unchanged.
func (s *Store) AddTransaction(ctx context.Context, input model.TransactionInput) (*model.Transaction, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	payload, err := input.Normalize()
	if err != nil {
		verr := &common.ValidationError{Reason: err.Error()}
		return nil, s.failImmediate(verr, "Failed to add transaction")
	}

	gen := s.begin()

	created, err := s.gw.CreateTransaction(ctx, payload)
	if err != nil {
		return nil, s.fail(err, "Failed to add transaction")
	}

	s.mu.Lock()
	if s.gen == gen {
		s.transactions = append([]model.Transaction{*created}, s.transactions...)
	}
	s.mu.Unlock()

	if err := s.refreshAggregates(ctx, gen); err != nil {
		return nil, s.fail(err, "Failed to refresh balance")
	}

	s.complete()
	return created, nil
}

// UpdateTransaction fully replaces a transaction and runs the same
// aggregate refresh as a create.
func (s *Store) UpdateTransaction(ctx context.Context, id int64, input model.TransactionInput) (*model.Transaction, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	payload, err := input.Normalize()
	if err != nil {
		verr := &common.ValidationError{Reason: err.Error()}
		return nil, s.failImmediate(verr, "Failed to update transaction")
	}

	gen := s.begin()

	updated, err := s.gw.UpdateTransaction(ctx, id, payload)
	if err != nil {
		return nil, s.fail(err, "Failed to update transaction")
	}

	s.mu.Lock()
	if s.gen == gen {
		for i := range s.transactions {
			if s.transactions[i].ID == id {
				s.transactions[i] = *updated
				break
			}
		}
	}
	s.mu.Unlock()

	if err := s.refreshAggregates(ctx, gen); err != nil {
		return nil, s.fail(err, "Failed to refresh balance")
	}

	s.complete()
	return updated, nil
}

// DeleteTransaction deletes a transaction by id, removes it from the local
// collection, and refreshes all three aggregates.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	gen := s.begin()

	if err := s.gw.DeleteTransaction(ctx, id); err != nil {
		return s.fail(err, "Failed to delete transaction")
	}

	s.mu.Lock()
	if s.gen == gen {
		kept := s.transactions[:0]
		for _, tx := range s.transactions {
			if tx.ID != id {
				kept = append(kept, tx)
			}
		}
		s.transactions = kept
	}
	s.mu.Unlock()

	if err := s.refreshAggregates(ctx, gen); err != nil {
		return s.fail(err, "Failed to refresh balance")
	}

	s.complete()
	return nil
}

// AddCategory creates a category. Category mutations do not refresh the
// aggregate snapshot: aggregates are keyed by transaction data, and the
// stale summary colors until the next transaction mutation are accepted.
func (s *Store) AddCategory(ctx context.Context, input model.CategoryInput) (*model.Category, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := input.Validate(); err != nil {
		verr := &common.ValidationError{Reason: err.Error()}
		return nil, s.failImmediate(verr, "Failed to add category")
	}

	gen := s.begin()

	created, err := s.gw.CreateCategory(ctx, input)
	if err != nil {
		return nil, s.fail(err, "Failed to add category")
	}

	s.mu.Lock()
	if s.gen == gen {
		s.categories = append(s.categories, *created)
	}
	s.mu.Unlock()

	s.complete()
	return created, nil
}

// UpdateCategory fully replaces a category by id.
func (s *Store) UpdateCategory(ctx context.Context, id int64, input model.CategoryInput) (*model.Category, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := input.Validate(); err != nil {
		verr := &common.ValidationError{Reason: err.Error()}
		return nil, s.failImmediate(verr, "Failed to update category")
	}

	gen := s.begin()

	updated, err := s.gw.UpdateCategory(ctx, id, input)
	if err != nil {
		return nil, s.fail(err, "Failed to update category")
	}

	s.mu.Lock()
	if s.gen == gen {
		for i := range s.categories {
			if s.categories[i].ID == id {
				s.categories[i] = *updated
				break
			}
		}
	}
	s.mu.Unlock()

	s.complete()
	return updated, nil
}

// DeleteCategory deletes a category by id. Transactions referencing it are
// left in place; their dangling reference renders as "Uncategorized".
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	gen := s.begin()

	if err := s.gw.DeleteCategory(ctx, id); err != nil {
		return s.fail(err, "Failed to delete category")
	}

	s.mu.Lock()
	if s.gen == gen {
		kept := s.categories[:0]
		for _, cat := range s.categories {
			if cat.ID != id {
				kept = append(kept, cat)
			}
		}
		s.categories = kept
	}
	s.mu.Unlock()

	s.complete()
	return nil
}

// ExportCSV writes the CSV export into the download directory and returns
// the written path. Failure is non-fatal: cached state and the store
// error are untouched, and the caller gets an ExportError to show as a
// warning.
func (s *Store) ExportCSV(ctx context.Context) (string, error) {
	return s.export(ctx, "csv", s.gw.ExportCSV)
}

// ExportExcel writes the Excel export into the download directory and
// returns the written path.
func (s *Store) ExportExcel(ctx context.Context) (string, error) {
	return s.export(ctx, "excel", s.gw.ExportExcel)
}

// SetDownloadDir changes where export artifacts are written.
func (s *Store) SetDownloadDir(dir string) {
	s.mu.Lock()
	s.downloadDir = dir
	s.mu.Unlock()
}

func (s *Store) export(ctx context.Context, format string, fetch func(context.Context) (*model.Export, error)) (string, error) {
	s.mu.RLock()
	dir := s.downloadDir
	s.mu.RUnlock()

	artifact, err := fetch(ctx)
	if err != nil {
		s.logger.Warn("Export failed", "format", format, "error", err)
		return "", &common.ExportError{Format: format, Err: err}
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		s.logger.Warn("Export failed", "format", format, "error", err)
		return "", &common.ExportError{Format: format, Err: err}
	}

	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0600); err != nil {
		s.logger.Warn("Export failed", "format", format, "error", err)
		return "", &common.ExportError{Format: format, Err: err}
	}

	s.logger.Info("Export written", "format", format, "path", path, "bytes", len(artifact.Data))
	return path, nil
}

// refreshAggregates re-fetches balance, category summary, and balance
// history concurrently and commits all three together, but only if the
// operation that requested them has not been superseded.
func (s *Store) refreshAggregates(ctx context.Context, gen uint64) error {
	var (
		balance *model.Balance
		summary []model.CategorySummaryEntry
		history []model.BalancePoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.gw.Balance(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.gw.CategorySummary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.gw.BalanceHistory(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.balance = *balance
		s.summary = summary
		s.history = history
	} else {
		s.logger.Debug("Discarding superseded aggregate refresh", "gen", gen)
	}
	s.mu.Unlock()

	return nil
}

// begin moves the store to Pending: the loading flag is set, any previous
// error cleared, and a new generation started.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastErr = ""
	s.gen++
	return s.gen
}

// complete moves the store to Committed.
func (s *Store) complete() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// fail moves the store to Failed, recording the human-readable message.
func (s *Store) fail(err error, fallback string) error {
	msg := common.UserMessage(err, fallback)
	s.mu.Lock()
	s.loading = false
	s.lastErr = msg
	s.mu.Unlock()
	return common.NewUserError(msg, err)
}

// failImmediate records a failure for an operation rejected before it
// entered Pending (local pre-validation).
func (s *Store) failImmediate(err error, fallback string) error {
	msg := common.UserMessage(err, fallback)
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	return common.NewUserError(msg, err)
}

// Transactions returns a copy of the cached transactions, newest first.
func (s *Store) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Categories returns a copy of the cached categories.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// CategoryName resolves a transaction's category reference for display.
// Dangling references degrade to "Uncategorized".
func (s *Store) CategoryName(id *int64) string {
	if id == nil {
		return "Uncategorized"
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cat := range s.categories {
		if cat.ID == *id {
			return cat.Name
		}
	}
	return "Uncategorized"
}

// Balance returns the cached balance snapshot.
func (s *Store) Balance() model.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// CategorySummary returns a copy of the cached category summary.
func (s *Store) CategorySummary() []model.CategorySummaryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CategorySummaryEntry, len(s.summary))
	copy(out, s.summary)
	return out
}

// BalanceHistory returns a copy of the cached balance history.
func (s *Store) BalanceHistory() []model.BalancePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.BalancePoint, len(s.history))
	copy(out, s.history)
	return out
}

// Initialized reports whether Initialize has committed.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Loading reports the store-wide pending flag. Overlapping operations
// share this one status.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the store-wide error message, or "" when the last operation
// committed.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError dismisses the store-wide error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// String implements fmt.Stringer for debug logging.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("finance.Store{transactions: %d, categories: %d, balance: %s %s}",
		len(s.transactions), len(s.categories), s.balance.Balance, s.balance.Currency)
}
