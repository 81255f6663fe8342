package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memKeystore is an in-memory SessionKeystore for tests.
type memKeystore struct {
	mu    sync.Mutex
	state *service.SessionState
	saves int
}

func (m *memKeystore) SaveSession(_ context.Context, state service.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := state
	m.state = &s
	m.saves++
	return nil
}

func (m *memKeystore) LoadSession(_ context.Context) (*service.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil || m.state.AccessToken == "" {
		return nil, nil
	}
	s := *m.state
	return &s, nil
}

func (m *memKeystore) ClearSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

func (m *memKeystore) Close() error { return nil }

func newTestStore(t *testing.T, handler http.Handler) (*Store, *memKeystore, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ks := &memKeystore{}
	store, err := NewStore(context.Background(), srv.URL, ks)
	require.NoError(t, err)

	return store, ks, srv
}

func TestStore_LoginSuccess(t *testing.T) {
	ctx := context.Background()

	var gotBody map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/token/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access":  "access-token",
			"refresh": "refresh-token",
		})
	})

	store, ks, _ := newTestStore(t, handler)

	require.NoError(t, store.Login(ctx, "alice", "s3cret"))
	assert.Equal(t, map[string]string{"username": "alice", "password": "s3cret"}, gotBody)

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "alice", store.CurrentUser())
	assert.Equal(t, "access-token", store.AccessToken())

	// Persisted: a fresh store over the same keystore restores the session.
	restored, err := NewStore(ctx, "http://unused.invalid", ks)
	require.NoError(t, err)
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, "alice", restored.CurrentUser())
}

func TestStore_LoginRejected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"detail": "No active account found with the given credentials",
		})
	})

	store, _, _ := newTestStore(t, handler)

	err := store.Login(context.Background(), "alice", "wrong")
	var authErr *common.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "No active account found with the given credentials", authErr.Reason)
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, UnknownUser, store.CurrentUser())
}

func TestStore_RefreshWithoutTokenLeavesSessionIntact(t *testing.T) {
	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	store, _, _ := newTestStore(t, handler)

	err := store.Refresh(context.Background())
	require.ErrorIs(t, err, common.ErrSessionExpired)
	assert.False(t, store.IsAuthenticated())
}

func TestStore_RefreshReplacesAccessTokenOnly(t *testing.T) {
	ctx := context.Background()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access": "access-1", "refresh": "refresh-1",
			})
		case "/token/refresh/":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-1", body["refresh"])
			_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-2"})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	store, ks, _ := newTestStore(t, handler)
	require.NoError(t, store.Login(ctx, "alice", "s3cret"))
	require.NoError(t, store.Refresh(ctx))

	assert.Equal(t, "access-2", store.AccessToken())
	assert.Equal(t, "alice", store.CurrentUser())

	saved, err := ks.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "access-2", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestStore_RefreshRejectedTearsDownSession(t *testing.T) {
	ctx := context.Background()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access": "access-1", "refresh": "refresh-1",
			})
		case "/token/refresh/":
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Token is invalid or expired"})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	store, ks, _ := newTestStore(t, handler)
	require.NoError(t, store.Login(ctx, "alice", "s3cret"))

	err := store.Refresh(ctx)
	require.ErrorIs(t, err, common.ErrSessionExpired)

	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, UnknownUser, store.CurrentUser())

	saved, loadErr := ks.LoadSession(ctx)
	require.NoError(t, loadErr)
	assert.Nil(t, saved)
}

func TestStore_LogoutIdempotent(t *testing.T) {
	ctx := context.Background()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access": "access-1", "refresh": "refresh-1",
		})
	})

	store, ks, _ := newTestStore(t, handler)
	require.NoError(t, store.Login(ctx, "alice", "s3cret"))

	store.Logout(ctx)
	assert.False(t, store.IsAuthenticated())
	saved, err := ks.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, saved)

	store.Logout(ctx)
	assert.False(t, store.IsAuthenticated())
}

func TestStore_RegisterValidationError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register/", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, body["password"], body["password2"])
		assert.Equal(t, "EUR", body["currency"])

		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"username": {"A user with that username already exists."},
		})
	})

	store, _, _ := newTestStore(t, handler)

	err := store.Register(context.Background(), "alice", "alice@example.com", "s3cret", "EUR")
	var valErr *common.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Reason, "already exists")
}

func TestStore_RegisterSuccess(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	store, _, _ := newTestStore(t, handler)
	require.NoError(t, store.Register(context.Background(), "alice", "alice@example.com", "s3cret", "USD"))
	assert.False(t, store.IsAuthenticated())
}

func TestStore_TokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	ks := &memKeystore{state: &service.SessionState{
		AccessToken:  signed,
		RefreshToken: "refresh",
		Username:     "alice",
	}}
	store, err := NewStore(context.Background(), "http://unused.invalid", ks)
	require.NoError(t, err)

	got, err := store.TokenExpiry()
	require.NoError(t, err)
	assert.True(t, got.Equal(exp), "want %v, got %v", exp, got)
}

func TestStore_TokenExpiryWithoutToken(t *testing.T) {
	store, _, _ := newTestStore(t, http.NotFoundHandler())

	_, err := store.TokenExpiry()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrSessionExpired))
}
