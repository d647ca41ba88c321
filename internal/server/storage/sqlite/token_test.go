package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/inkpad/internal/models"
	"github.com/iudanet/inkpad/internal/server/storage"
)

func TestTokenStorage_SaveRefreshToken(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	tests := []struct {
		token *models.RefreshToken
		name  string
	}{
		{
			name: "save new refresh token",
			token: &models.RefreshToken{
				Token:     "token123",
				UserID:    userID,
				DeviceID:  "device-a",
				ExpiresAt: time.Now().Add(24 * time.Hour),
				CreatedAt: time.Now(),
			},
		},
		{
			name: "replace existing token with same value",
			token: &models.RefreshToken{
				Token:     "token123", // Same token
				UserID:    userID,
				DeviceID:  "device-b",                       // Different device
				ExpiresAt: time.Now().Add(48 * time.Hour), // Different expiry
				CreatedAt: time.Now(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SaveRefreshToken(ctx, tt.token)
			require.NoError(t, err)

			// Verify token was saved
			retrieved, err := s.GetRefreshToken(ctx, tt.token.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.token.Token, retrieved.Token)
			assert.Equal(t, tt.token.UserID, retrieved.UserID)
			assert.Equal(t, tt.token.DeviceID, retrieved.DeviceID)
		})
	}
}

func TestTokenStorage_GetRefreshToken(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	// Create test token
	token := &models.RefreshToken{
		Token:     "findme",
		UserID:    userID,
		DeviceID:  "device-a",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	}
	err := s.SaveRefreshToken(ctx, token)
	require.NoError(t, err)

	tests := []struct {
		wantError error
		name      string
		token     string
	}{
		{
			name:      "get existing token",
			token:     "findme",
			wantError: nil,
		},
		{
			name:      "get non-existent token",
			token:     "notfound",
			wantError: storage.ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retrieved, err := s.GetRefreshToken(ctx, tt.token)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, retrieved)
			} else {
				require.NoError(t, err)
				assert.Equal(t, token.Token, retrieved.Token)
				assert.Equal(t, token.UserID, retrieved.UserID)
				assert.Equal(t, token.DeviceID, retrieved.DeviceID)
			}
		})
	}
}

func TestTokenStorage_DeleteRefreshToken(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	// Create test token
	token := &models.RefreshToken{
		Token:     "todelete",
		UserID:    userID,
		DeviceID:  "device-a",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	}
	err := s.SaveRefreshToken(ctx, token)
	require.NoError(t, err)

	tests := []struct {
		wantError error
		name      string
		token     string
	}{
		{
			name:      "delete existing token",
			token:     "todelete",
			wantError: nil,
		},
		{
			name:      "delete non-existent token",
			token:     "notfound",
			wantError: storage.ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.DeleteRefreshToken(ctx, tt.token)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
			} else {
				require.NoError(t, err)

				// Verify token is deleted
				_, err := s.GetRefreshToken(ctx, tt.token)
				assert.ErrorIs(t, err, storage.ErrTokenNotFound)
			}
		})
	}
}

func TestTokenStorage_DeleteUserTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID1 := createTestUser(t, ctx, s)
	userID2 := createTestUser(t, ctx, s)

	// Create tokens for both users
	tokens := []*models.RefreshToken{
		{Token: "user1_token1", UserID: userID1, DeviceID: "d1", ExpiresAt: time.Now().Add(24 * time.Hour), CreatedAt: time.Now()},
		{Token: "user1_token2", UserID: userID1, DeviceID: "d2", ExpiresAt: time.Now().Add(24 * time.Hour), CreatedAt: time.Now()},
		{Token: "user2_token1", UserID: userID2, DeviceID: "d3", ExpiresAt: time.Now().Add(24 * time.Hour), CreatedAt: time.Now()},
	}

	for _, token := range tokens {
		err := s.SaveRefreshToken(ctx, token)
		require.NoError(t, err)
	}

	count, err := s.DeleteUserTokens(ctx, userID1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Токены первого пользователя удалены
	_, err = s.GetRefreshToken(ctx, "user1_token1")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
	_, err = s.GetRefreshToken(ctx, "user1_token2")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)

	// Токен второго пользователя остался
	retrieved, err := s.GetRefreshToken(ctx, "user2_token1")
	require.NoError(t, err)
	assert.Equal(t, userID2, retrieved.UserID)

	// Повторное удаление ничего не находит
	count, err = s.DeleteUserTokens(ctx, userID1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTokenStorage_DeleteExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	// Use UTC time to match SQLite's datetime('now')
	now := time.Now().UTC()
	tokens := []*models.RefreshToken{
		{
			Token:     "expired1",
			UserID:    userID,
			DeviceID:  "d1",
			ExpiresAt: now.Add(-2 * time.Hour), // Expired
			CreatedAt: now.Add(-3 * time.Hour),
		},
		{
			Token:     "expired2",
			UserID:    userID,
			DeviceID:  "d2",
			ExpiresAt: now.Add(-1 * time.Hour), // Expired
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			Token:     "valid1",
			UserID:    userID,
			DeviceID:  "d3",
			ExpiresAt: now.Add(24 * time.Hour), // Valid
			CreatedAt: now,
		},
	}

	for _, token := range tokens {
		err := s.SaveRefreshToken(ctx, token)
		require.NoError(t, err)
	}

	// Delete expired tokens
	count, err := s.DeleteExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "Should delete 2 expired tokens")

	// Verify only the valid token remains
	retrieved, err := s.GetRefreshToken(ctx, "valid1")
	require.NoError(t, err)
	assert.True(t, retrieved.ExpiresAt.After(now))

	_, err = s.GetRefreshToken(ctx, "expired1")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}
