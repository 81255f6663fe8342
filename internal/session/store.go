// Package session owns the authentication token pair and its lifecycle.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

// UnknownUser is returned by CurrentUser when no username is cached.
const UnknownUser = "unknown user"

// Store owns the session: the access/refresh token pair and the username.
// It is the sole writer of the durable keystore and is consulted by every
// outbound gateway request for the current bearer token.
type Store struct {
	httpClient *http.Client
	keystore   service.SessionKeystore
	logger     *slog.Logger
	baseURL    string

	mu       sync.RWMutex
	access   string
	refresh  string
	username string
}

// NewStore creates a session store and restores any persisted session
// before returning, so dependent components never observe a
// half-initialized state.
func NewStore(ctx context.Context, baseURL string, keystore service.SessionKeystore) (*Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	if keystore == nil {
		return nil, fmt.Errorf("session keystore is required")
	}

	s := &Store{
		baseURL:  strings.TrimRight(baseURL, "/"),
		keystore: keystore,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default().With("component", "session"),
	}

	state, err := keystore.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if state != nil {
		s.access = state.AccessToken
		s.refresh = state.RefreshToken
		s.username = state.Username
		s.logger.Debug("Restored persisted session", "username", state.Username)
	}

	return s, nil
}

// Login exchanges credentials for a token pair. On success the session is
// set atomically and persisted to the keystore.
func (s *Store) Login(ctx context.Context, username, password string) error {
	body, status, err := s.postJSON(ctx, "/token/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return &common.TransportError{Err: err}
	}

	if status != http.StatusOK {
		reason := common.DetailFromBody(body)
		if reason == "" {
			reason = "Invalid credentials"
		}
		return &common.AuthError{Reason: reason}
	}

	var tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return &common.TransportError{Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if tokens.Access == "" {
		return &common.AuthError{Reason: "Invalid credentials"}
	}

	s.mu.Lock()
	s.access = tokens.Access
	s.refresh = tokens.Refresh
	s.username = username
	s.mu.Unlock()

	if err := s.keystore.SaveSession(ctx, service.SessionState{
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
		Username:     username,
	}); err != nil {
		// The remote login succeeded; the session is usable for this
		// process even if it won't survive a restart.
		s.logger.Warn("Failed to persist session", "error", err)
	}

	s.logger.Info("Logged in", "username", username)
	return nil
}

// Register creates a new account. It does not authenticate it; callers
// must follow up with Login.
func (s *Store) Register(ctx context.Context, username, email, password, currency string) error {
	body, status, err := s.postJSON(ctx, "/register/", map[string]string{
		"username":  username,
		"email":     email,
		"password":  password,
		"password2": password,
		"currency":  currency,
	})
	if err != nil {
		return &common.TransportError{Err: err}
	}

	if status >= 200 && status < 300 {
		s.logger.Info("Registered account", "username", username)
		return nil
	}

	reason := common.DetailFromBody(body)
	if reason == "" {
		reason = "Registration failed"
	}
	return &common.ValidationError{Reason: reason}
}

// Refresh exchanges the refresh token for a new access token, replacing
// the access token only. Without a refresh token it fails with
// ErrSessionExpired but leaves the session untouched; if the remote
// authority rejects the token the session is torn down as well.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refresh
	username := s.username
	s.mu.RUnlock()

	if refresh == "" {
		return fmt.Errorf("no refresh token held: %w", common.ErrSessionExpired)
	}

	body, status, err := s.postJSON(ctx, "/token/refresh/", map[string]string{
		"refresh": refresh,
	})
	if err != nil {
		return &common.TransportError{Err: err}
	}

	if status != http.StatusOK {
		s.logger.Warn("Refresh token rejected, tearing down session", "status", status)
		s.Logout(ctx)
		return fmt.Errorf("refresh rejected: %w", common.ErrSessionExpired)
	}

	var tokens struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.Access == "" {
		s.Logout(ctx)
		return fmt.Errorf("invalid refresh response: %w", common.ErrSessionExpired)
	}

	s.mu.Lock()
	s.access = tokens.Access
	s.mu.Unlock()

	if err := s.keystore.SaveSession(ctx, service.SessionState{
		AccessToken:  tokens.Access,
		RefreshToken: refresh,
		Username:     username,
	}); err != nil {
		s.logger.Warn("Failed to persist refreshed session", "error", err)
	}

	s.logger.Debug("Refreshed access token")
	return nil
}

// Logout unconditionally clears the session and the durable store. It is
// idempotent and never fails.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.username = ""
	s.mu.Unlock()

	if err := s.keystore.ClearSession(ctx); err != nil {
		s.logger.Warn("Failed to clear persisted session", "error", err)
	}
}

// CurrentUser returns the cached username without a network call.
func (s *Store) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.username == "" {
		return UnknownUser
	}
	return s.username
}

// IsAuthenticated reports whether an access token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != ""
}

// AccessToken returns the current access token, or "" when none is held.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// TokenExpiry decodes the access token's exp claim without verifying the
// signature. Display only; the remote authority is the arbiter of token
// validity.
func (s *Store) TokenExpiry() (time.Time, error) {
	s.mu.RLock()
	access := s.access
	s.mu.RUnlock()

	if access == "" {
		return time.Time{}, fmt.Errorf("no access token held")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("access token has no expiry claim")
	}

	return exp.Time, nil
}

// postJSON posts a JSON payload and returns the response body and status.
func (s *Store) postJSON(ctx context.Context, path string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
