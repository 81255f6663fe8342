// Package service defines the interface contracts between the application's
// components.
package service

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"fintrack/internal/model"
)

// TransactionFilter defines filtering options for transaction list queries.
// Set fields are passed through verbatim as query parameters; the remote
// authority does the actual filtering.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	MinAmount  *float64
	MaxAmount  *float64
	CategoryID *int64
	Type       model.CategoryType
	Search     string
	Ordering   string
}

// Values encodes the filter as URL query parameters.
func (f TransactionFilter) Values() url.Values {
	q := url.Values{}
	if f.CategoryID != nil {
		q.Set("category", strconv.FormatInt(*f.CategoryID, 10))
	}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.StartDate != nil {
		q.Set("start_date", f.StartDate.Format("2006-01-02"))
	}
	if f.EndDate != nil {
		q.Set("end_date", f.EndDate.Format("2006-01-02"))
	}
	if f.MinAmount != nil {
		q.Set("min_amount", strconv.FormatFloat(*f.MinAmount, 'f', -1, 64))
	}
	if f.MaxAmount != nil {
		q.Set("max_amount", strconv.FormatFloat(*f.MaxAmount, 'f', -1, 64))
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	return q
}

// Gateway is the typed request surface over the remote authority's REST
// API. Implementations attach the current access token to every call and
// map HTTP failures onto the common error taxonomy.
type Gateway interface {
	// Transaction operations
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	CreateTransaction(ctx context.Context, payload model.NewTransaction) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, payload model.NewTransaction) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error

	// Category operations
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	CreateCategory(ctx context.Context, payload model.CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, id int64, payload model.CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Aggregate queries, computed by the remote authority
	Balance(ctx context.Context) (*model.Balance, error)
	CategorySummary(ctx context.Context) ([]model.CategorySummaryEntry, error)
	BalanceHistory(ctx context.Context) ([]model.BalancePoint, error)

	// Binary exports
	ExportCSV(ctx context.Context) (*model.Export, error)
	ExportExcel(ctx context.Context) (*model.Export, error)
}

// SessionState is the durable portion of a session: the token pair and the
// username. It is the only state the client persists.
type SessionState struct {
	AccessToken  string
	RefreshToken string
	Username     string
}

// SessionKeystore is the durable key-value store backing the session.
// LoadSession returns nil when no session is stored.
type SessionKeystore interface {
	SaveSession(ctx context.Context, state SessionState) error
	LoadSession(ctx context.Context) (*SessionState, error)
	ClearSession(ctx context.Context) error
	Close() error
}
