// Package gateway provides the typed REST client for the remote authority.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/model"
	"fintrack/internal/service"
)

// TokenProvider supplies the bearer credential for outbound requests and
// the refresh path invoked once on a 401-class rejection.
type TokenProvider interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// Config holds gateway configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	return nil
}

// Client implements the Gateway interface over the remote authority's
// REST API.
type Client struct {
	httpClient *http.Client
	tokens     TokenProvider
	logger     *slog.Logger
	baseURL    string
}

// NewClient creates a new gateway client with the given configuration.
// tokens may be nil, in which case every request is sent unauthenticated
// and the remote authority decides what that is worth.
func NewClient(cfg Config, tokens TokenProvider) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "gateway"),
	}, nil
}

// do performs one API request, attaching the current bearer token when one
// is held. A 401 response triggers the refresh path exactly once; if the
// refresh succeeds the request is retried with the new token, otherwise
// the session teardown error propagates.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = data
	}

	resp, data, err := c.attempt(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && c.tokens.AccessToken() != "" {
		c.logger.Debug("Access token rejected, refreshing", "path", path)
		if err := c.tokens.Refresh(ctx); err != nil {
			return nil, err
		}
		resp, data, err = c.attempt(ctx, method, path, query, body)
		if err != nil {
			return nil, err
		}
	}

	if err := c.mapStatus(resp.StatusCode, path, data); err != nil {
		return nil, err
	}

	return data, nil
}

// attempt performs a single HTTP round trip and drains the body.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &common.TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &common.TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return resp, data, nil
}

// mapStatus translates an HTTP status into the common error taxonomy.
func (c *Client) mapStatus(status int, path string, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &common.AuthError{Reason: common.DetailFromBody(body)}
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, common.ErrNotFound)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &common.ValidationError{Reason: common.DetailFromBody(body)}
	default:
		detail := common.DetailFromBody(body)
		if detail == "" {
			detail = http.StatusText(status)
		}
		return &common.TransportError{StatusCode: status, Err: fmt.Errorf("%s", detail)}
	}
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// ListTransactions fetches transactions, newest first. Filter parameters
// are passed through verbatim; the remote authority does the filtering.
func (c *Client) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	var transactions []model.Transaction
	if err := c.getJSON(ctx, "/transactions/", filter.Values(), &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetTransaction fetches a single transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	var tx model.Transaction
	if err := c.getJSON(ctx, fmt.Sprintf("/transactions/%d/", id), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateTransaction creates a transaction and returns the stored record.
func (c *Client) CreateTransaction(ctx context.Context, payload model.NewTransaction) (*model.Transaction, error) {
	data, err := c.do(ctx, http.MethodPost, "/transactions/", nil, payload)
	if err != nil {
		return nil, err
	}
	var tx model.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode created transaction: %w", err)
	}
	return &tx, nil
}

// UpdateTransaction fully replaces a transaction by id.
func (c *Client) UpdateTransaction(ctx context.Context, id int64, payload model.NewTransaction) (*model.Transaction, error) {
	data, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/transactions/%d/", id), nil, payload)
	if err != nil {
		return nil, err
	}
	var tx model.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode updated transaction: %w", err)
	}
	return &tx, nil
}

// DeleteTransaction deletes a transaction by id.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/transactions/%d/", id), nil, nil)
	return err
}

// ListCategories fetches all categories.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.getJSON(ctx, "/categories/", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategory fetches a single category by id.
func (c *Client) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var cat model.Category
	if err := c.getJSON(ctx, fmt.Sprintf("/categories/%d/", id), nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// CreateCategory creates a category and returns the stored record.
func (c *Client) CreateCategory(ctx context.Context, payload model.CategoryInput) (*model.Category, error) {
	data, err := c.do(ctx, http.MethodPost, "/categories/", nil, payload)
	if err != nil {
		return nil, err
	}
	var cat model.Category
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to decode created category: %w", err)
	}
	return &cat, nil
}

// UpdateCategory fully replaces a category by id.
func (c *Client) UpdateCategory(ctx context.Context, id int64, payload model.CategoryInput) (*model.Category, error) {
	data, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d/", id), nil, payload)
	if err != nil {
		return nil, err
	}
	var cat model.Category
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to decode updated category: %w", err)
	}
	return &cat, nil
}

// DeleteCategory deletes a category by id. Transactions referencing it are
// left alone; the remote authority nulls the reference.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d/", id), nil, nil)
	return err
}

// Balance fetches the current balance and currency.
func (c *Client) Balance(ctx context.Context) (*model.Balance, error) {
	var balance model.Balance
	if err := c.getJSON(ctx, "/transactions/balance/", nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// CategorySummary fetches the per-category expense totals for the current
// month.
func (c *Client) CategorySummary(ctx context.Context) ([]model.CategorySummaryEntry, error) {
	var summary []model.CategorySummaryEntry
	if err := c.getJSON(ctx, "/transactions/category_summary/", nil, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// BalanceHistory fetches the daily running balance for the current month.
func (c *Client) BalanceHistory(ctx context.Context) ([]model.BalancePoint, error) {
	var history []model.BalancePoint
	if err := c.getJSON(ctx, "/transactions/balance_history/", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// ExportCSV requests the CSV export as an opaque byte stream.
func (c *Client) ExportCSV(ctx context.Context) (*model.Export, error) {
	data, err := c.do(ctx, http.MethodGet, "/transactions/export_csv/", nil, nil)
	if err != nil {
		return nil, err
	}
	return &model.Export{
		Filename:    "transactions.csv",
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// ExportExcel requests the Excel export as an opaque byte stream.
func (c *Client) ExportExcel(ctx context.Context) (*model.Export, error) {
	data, err := c.do(ctx, http.MethodGet, "/transactions/export_excel/", nil, nil)
	if err != nil {
		return nil, err
	}
	return &model.Export{
		Filename:    "transactions.xls",
		ContentType: "application/vnd.ms-excel",
		Data:        data,
	}, nil
}

// Ensure Client implements the Gateway interface.
var _ service.Gateway = (*Client)(nil)
