package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/inkpad/internal/client/remote"
	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/client/storage/boltdb"
	"github.com/iudanet/inkpad/pkg/api"
)

// authServer эмулирует auth endpoints сервера
type authServer struct {
	*httptest.Server
	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	expiresIn    int64
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()

	as := &authServer{expiresIn: 900}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(t, w, api.RegisterResponse{UserID: "user-1", Message: "registered"})
	})

	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		as.loginCalls.Add(1)
		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(t, w, api.ErrorResponse{Error: "invalid credentials"})
			return
		}
		writeJSON(t, w, api.TokenResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			UserID:       "user-1",
			ExpiresIn:    as.expiresIn,
		})
	})

	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		as.refreshCalls.Add(1)
		var req api.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.RefreshToken != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(t, w, api.ErrorResponse{Error: "invalid refresh token"})
			return
		}
		writeJSON(t, w, api.TokenResponse{
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			UserID:       "user-1",
			ExpiresIn:    900,
		})
	})

	as.Server = httptest.NewServer(mux)
	t.Cleanup(as.Close)
	return as
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// createTestService wires the auth service over a real BoltDB store
func createTestService(t *testing.T, serverURL string) (Service, *boltdb.Storage) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := boltdb.New(context.Background(), t.TempDir()+"/client.db", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	client := remote.NewClient(serverURL, nil)
	return NewService(client, store, store, logger), store
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, _ := createTestService(t, as.URL)

	userID, err := svc.Register(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, _ := createTestService(t, as.URL)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "username too short", username: "ab", password: "password123"},
		{name: "username with spaces", username: "bad user", password: "password123"},
		{name: "password too short", username: "alice", password: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			assert.Error(t, err)
		})
	}
}

func TestService_LoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, store := createTestService(t, as.URL)

	session, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "access-1", session.AccessToken)
	assert.NotEmpty(t, session.DeviceID)

	// Сессия долговечна
	stored, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.AccessToken, stored.AccessToken)

	ok, err := svc.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_LoginRejectedByServer(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, _ := createTestService(t, as.URL)

	_, err := svc.Login(ctx, "alice", "wrongpassword")
	require.Error(t, err)

	ok, err := svc.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_DeviceIDStableAcrossLogins(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, _ := createTestService(t, as.URL)

	first, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))

	second, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	// Logout не сбрасывает идентификатор устройства
	assert.Equal(t, first.DeviceID, second.DeviceID)
}

func TestService_AccessTokenFreshSession(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, _ := createTestService(t, as.URL)

	_, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	token, err := svc.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Zero(t, as.refreshCalls.Load())
}

func TestService_AccessTokenRefreshesExpired(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	// Токен истекает мгновенно
	as.expiresIn = 0
	svc, store := createTestService(t, as.URL)

	_, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	token, err := svc.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, int64(1), as.refreshCalls.Load())

	// Новая пара токенов сохранена
	session, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", session.AccessToken)
	assert.Equal(t, "refresh-2", session.RefreshToken)
	assert.Greater(t, session.ExpiresAt, time.Now().Unix())
}

func TestService_AccessTokenWithoutSession(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, _ := createTestService(t, as.URL)

	_, err := svc.AccessToken(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	as := newAuthServer(t)
	svc, _ := createTestService(t, as.URL)

	_, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))

	_, err = svc.Session(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}
