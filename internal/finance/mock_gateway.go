package finance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/model"
	"fintrack/internal/service"
)

// MockGateway is a test implementation of the Gateway interface. It keeps
// its own authoritative collections and recomputes the aggregates from
// them, so tests can compare the store's cache against what the remote
// side would report after a mutation.
type MockGateway struct {
	failures map[string]error
	calls    map[string]int

	transactions []model.Transaction
	categories   []model.Category
	history      []model.BalancePoint
	currency     string

	nextTransactionID int64
	nextCategoryID    int64

	mu sync.Mutex
}

// NewMockGateway creates an empty mock gateway reporting USD balances.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		currency: "USD",
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// FailWith makes the named method return err until cleared with a nil err.
func (m *MockGateway) FailWith(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Calls returns how many times the named method was invoked.
func (m *MockGateway) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// SeedTransaction inserts a transaction directly into the mock's
// authoritative collection, bypassing call counting.
func (m *MockGateway) SeedTransaction(tx model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID > m.nextTransactionID {
		m.nextTransactionID = tx.ID
	}
	m.transactions = append([]model.Transaction{tx}, m.transactions...)
}

// SeedCategory inserts a category directly into the mock's authoritative
// collection.
func (m *MockGateway) SeedCategory(cat model.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cat.ID > m.nextCategoryID {
		m.nextCategoryID = cat.ID
	}
	m.categories = append(m.categories, cat)
}

// SeedHistory replaces the balance history the mock serves.
func (m *MockGateway) SeedHistory(points []model.BalancePoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = points
}

// ServerBalance reports the balance the mock would currently serve.
func (m *MockGateway) ServerBalance() model.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computeBalance()
}

func (m *MockGateway) record(method string) error {
	m.calls[method]++
	if err := m.failures[method]; err != nil {
		return err
	}
	return nil
}

func (m *MockGateway) computeBalance() model.Amount {
	var total model.Amount
	for _, tx := range m.transactions {
		total += tx.Amount
	}
	return total
}

// ListTransactions returns the mock's transactions, newest first.
func (m *MockGateway) ListTransactions(_ context.Context, _ service.TransactionFilter) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListTransactions"); err != nil {
		return nil, err
	}
	out := make([]model.Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out, nil
}

// GetTransaction returns a transaction by id.
func (m *MockGateway) GetTransaction(_ context.Context, id int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetTransaction"); err != nil {
		return nil, err
	}
	for _, tx := range m.transactions {
		if tx.ID == id {
			found := tx
			return &found, nil
		}
	}
	return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
}

// CreateTransaction stores a new transaction and returns the record.
func (m *MockGateway) CreateTransaction(_ context.Context, payload model.NewTransaction) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateTransaction"); err != nil {
		return nil, err
	}
	m.nextTransactionID++
	tx := model.Transaction{
		ID:          m.nextTransactionID,
		Title:       payload.Title,
		Description: payload.Description,
		Amount:      payload.Amount,
		CategoryID:  payload.CategoryID,
		CreatedAt:   time.Now(),
	}
	m.transactions = append([]model.Transaction{tx}, m.transactions...)
	return &tx, nil
}

// UpdateTransaction replaces a transaction by id.
func (m *MockGateway) UpdateTransaction(_ context.Context, id int64, payload model.NewTransaction) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateTransaction"); err != nil {
		return nil, err
	}
	for i := range m.transactions {
		if m.transactions[i].ID == id {
			m.transactions[i].Title = payload.Title
			m.transactions[i].Description = payload.Description
			m.transactions[i].Amount = payload.Amount
			m.transactions[i].CategoryID = payload.CategoryID
			updated := m.transactions[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
}

// DeleteTransaction removes a transaction by id.
func (m *MockGateway) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteTransaction"); err != nil {
		return err
	}
	for i := range m.transactions {
		if m.transactions[i].ID == id {
			m.transactions = append(m.transactions[:i], m.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
}

// ListCategories returns the mock's categories.
func (m *MockGateway) ListCategories(_ context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListCategories"); err != nil {
		return nil, err
	}
	out := make([]model.Category, len(m.categories))
	copy(out, m.categories)
	return out, nil
}

// GetCategory returns a category by id.
func (m *MockGateway) GetCategory(_ context.Context, id int64) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetCategory"); err != nil {
		return nil, err
	}
	for _, cat := range m.categories {
		if cat.ID == id {
			found := cat
			return &found, nil
		}
	}
	return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
}

// CreateCategory stores a new category and returns the record.
func (m *MockGateway) CreateCategory(_ context.Context, payload model.CategoryInput) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateCategory"); err != nil {
		return nil, err
	}
	m.nextCategoryID++
	cat := model.Category{
		ID:    m.nextCategoryID,
		Name:  payload.Name,
		Type:  payload.Type,
		Color: payload.Color,
	}
	m.categories = append(m.categories, cat)
	return &cat, nil
}

// UpdateCategory replaces a category by id.
func (m *MockGateway) UpdateCategory(_ context.Context, id int64, payload model.CategoryInput) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateCategory"); err != nil {
		return nil, err
	}
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories[i].Name = payload.Name
			m.categories[i].Type = payload.Type
			m.categories[i].Color = payload.Color
			updated := m.categories[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
}

// DeleteCategory removes a category by id. Transactions keep their now
// dangling reference, the same way the real backend nulls it lazily.
func (m *MockGateway) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteCategory"); err != nil {
		return err
	}
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %d: %w", id, common.ErrNotFound)
}

// Balance recomputes the balance from the mock's transactions.
func (m *MockGateway) Balance(_ context.Context) (*model.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Balance"); err != nil {
		return nil, err
	}
	return &model.Balance{
		Currency: m.currency,
		Balance:  m.computeBalance(),
	}, nil
}

// CategorySummary recomputes per-category expense totals from the mock's
// transactions.
func (m *MockGateway) CategorySummary(_ context.Context) ([]model.CategorySummaryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CategorySummary"); err != nil {
		return nil, err
	}

	totals := make(map[int64]float64)
	for _, tx := range m.transactions {
		if tx.CategoryID == nil || !tx.Amount.IsExpense() {
			continue
		}
		totals[*tx.CategoryID] += tx.Amount.Abs()
	}

	var summary []model.CategorySummaryEntry
	for _, cat := range m.categories {
		amount, ok := totals[cat.ID]
		if !ok {
			continue
		}
		summary = append(summary, model.CategorySummaryEntry{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Color:      cat.Color,
			Amount:     model.Amount(amount),
		})
	}
	return summary, nil
}

// BalanceHistory returns the seeded balance history.
func (m *MockGateway) BalanceHistory(_ context.Context) ([]model.BalancePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("BalanceHistory"); err != nil {
		return nil, err
	}
	out := make([]model.BalancePoint, len(m.history))
	copy(out, m.history)
	return out, nil
}

// ExportCSV returns a canned CSV artifact.
func (m *MockGateway) ExportCSV(_ context.Context) (*model.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ExportCSV"); err != nil {
		return nil, err
	}
	return &model.Export{
		Filename:    "transactions.csv",
		ContentType: "text/csv",
		Data:        []byte("id,title,amount\n"),
	}, nil
}

// ExportExcel returns a canned Excel artifact.
func (m *MockGateway) ExportExcel(_ context.Context) (*model.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ExportExcel"); err != nil {
		return nil, err
	}
	return &model.Export{
		Filename:    "transactions.xls",
		ContentType: "application/vnd.ms-excel",
		Data:        []byte{0x09, 0x08},
	}, nil
}

// Ensure MockGateway implements the Gateway interface.
var _ service.Gateway = (*MockGateway)(nil)
