package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/model"
	"fintrack/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokens is a TokenProvider with a scripted refresh outcome.
type fakeTokens struct {
	mu         sync.Mutex
	token      string
	refreshTo  string
	refreshErr error
	refreshes  int
}

func (f *fakeTokens) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokens) Refresh(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.token = f.refreshTo
	return nil
}

func newTestClient(t *testing.T, handler http.Handler, tokens TokenProvider) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL}, tokens)
	require.NoError(t, err)
	return client
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())

	cfg.BaseURL = "http://localhost:8000/api"
	assert.NoError(t, cfg.Validate())
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]model.Transaction{})
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok-1"})
	_, err := client.ListTransactions(context.Background(), service.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClient_NoTokenNoAuthHeader(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]model.Category{})
	})

	client := newTestClient(t, handler, nil)
	_, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_FilterParamsPassedVerbatim(t *testing.T) {
	var gotQuery map[string][]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/", r.URL.Path)
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]model.Transaction{})
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})

	catID := int64(3)
	minAmount := 10.5
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.ListTransactions(context.Background(), service.TransactionFilter{
		CategoryID: &catID,
		Type:       model.CategoryTypeExpense,
		Search:     "milk",
		StartDate:  &start,
		MinAmount:  &minAmount,
		Ordering:   "-created_at",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"3"}, gotQuery["category"])
	assert.Equal(t, []string{"expense"}, gotQuery["type"])
	assert.Equal(t, []string{"milk"}, gotQuery["search"])
	assert.Equal(t, []string{"2026-08-01"}, gotQuery["start_date"])
	assert.Equal(t, []string{"10.5"}, gotQuery["min_amount"])
	assert.Equal(t, []string{"-created_at"}, gotQuery["ordering"])
	assert.NotContains(t, gotQuery, "end_date")
	assert.NotContains(t, gotQuery, "max_amount")
}

func TestClient_RefreshOnceOn401(t *testing.T) {
	var attempts int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.Header.Get("Authorization") != "Bearer tok-new" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Token expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(model.Balance{Currency: "USD", Balance: 100})
	})

	tokens := &fakeTokens{token: "tok-old", refreshTo: "tok-new"}
	client := newTestClient(t, handler, tokens)

	balance, err := client.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, attempts)
	assert.InDelta(t, 100, float64(balance.Balance), 0.0001)
}

func TestClient_RefreshFailurePropagates(t *testing.T) {
	var attempts int
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	})

	tokens := &fakeTokens{token: "tok-old", refreshErr: common.ErrSessionExpired}
	client := newTestClient(t, handler, tokens)

	_, err := client.Balance(context.Background())
	require.ErrorIs(t, err, common.ErrSessionExpired)
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 1, attempts)
}

func TestClient_Unauthenticated401NotRetried(t *testing.T) {
	var attempts int
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Authentication credentials were not provided."})
	})

	client := newTestClient(t, handler, &fakeTokens{})

	_, err := client.Balance(context.Background())
	var authErr *common.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, attempts)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		check  func(t *testing.T, err error)
		name   string
		body   string
		status int
	}{
		{
			name:   "404 maps to not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrNotFound)
			},
		},
		{
			name:   "400 maps to validation error with detail",
			status: http.StatusBadRequest,
			body:   `{"title": ["This field is required."]}`,
			check: func(t *testing.T, err error) {
				var valErr *common.ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.Contains(t, valErr.Reason, "This field is required.")
			},
		},
		{
			name:   "403 maps to auth error",
			status: http.StatusForbidden,
			body:   `{"detail": "You do not have permission to perform this action."}`,
			check: func(t *testing.T, err error) {
				var authErr *common.AuthError
				require.ErrorAs(t, err, &authErr)
			},
		},
		{
			name:   "500 maps to transport error with status",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var trErr *common.TransportError
				require.ErrorAs(t, err, &trErr)
				assert.Equal(t, http.StatusInternalServerError, trErr.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			client := newTestClient(t, handler, &fakeTokens{token: "tok"})

			_, err := client.GetTransaction(context.Background(), 42)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_CreateTransaction(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transactions/", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Milk", payload["title"])
		assert.Equal(t, "-4.50", payload["amount"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 9, "title": "Milk", "amount": "-4.50", "category": null, "created_at": "2026-08-30T12:00:00Z"}`))
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})

	created, err := client.CreateTransaction(context.Background(), model.NewTransaction{
		Title:  "Milk",
		Amount: -4.50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
	assert.InDelta(t, -4.50, float64(created.Amount), 0.0001)
}

func TestClient_DeleteTransaction(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/transactions/7/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})
	require.NoError(t, client.DeleteTransaction(context.Background(), 7))
}

func TestClient_AggregateEndpoints(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transactions/balance/":
			_, _ = w.Write([]byte(`{"balance": "1250.75", "currency": "EUR"}`))
		case "/transactions/category_summary/":
			_, _ = w.Write([]byte(`[{"id": 3, "name": "Groceries", "color": "#4CAF50", "amount": "45.20"}]`))
		case "/transactions/balance_history/":
			_, _ = w.Write([]byte(`[{"date": "2026-08-01", "balance": "1200.00"}, {"date": "2026-08-02", "balance": "1250.75"}]`))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})
	ctx := context.Background()

	balance, err := client.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", balance.Currency)
	assert.InDelta(t, 1250.75, float64(balance.Balance), 0.0001)

	summary, err := client.CategorySummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, "Groceries", summary[0].Name)
	assert.Equal(t, int64(3), summary[0].CategoryID)

	history, err := client.BalanceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-08-01", history[0].Date)
}

func TestClient_Exports(t *testing.T) {
	csvBody := "id,title,amount\n1,Milk,-4.50\n"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transactions/export_csv/":
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte(csvBody))
		case "/transactions/export_excel/":
			w.Header().Set("Content-Type", "application/vnd.ms-excel")
			_, _ = w.Write([]byte{0x09, 0x08})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})
	ctx := context.Background()

	csv, err := client.ExportCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, "transactions.csv", csv.Filename)
	assert.Equal(t, "text/csv", csv.ContentType)
	assert.Equal(t, csvBody, string(csv.Data))

	xls, err := client.ExportExcel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "transactions.xls", xls.Filename)
	assert.Equal(t, "application/vnd.ms-excel", xls.ContentType)
	assert.Equal(t, []byte{0x09, 0x08}, xls.Data)
}
