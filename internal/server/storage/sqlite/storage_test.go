package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/inkpad/internal/models"
)

// setupTestStorage создает in-memory БД с миграциями
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		require.NoError(t, s.Close())
	}

	return s, cleanup
}

// createTestUser создает пользователя и возвращает его ID
func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	t.Helper()

	userID := uuid.New().String()
	user := &models.User{
		ID:           userID,
		Username:     "user-" + userID[:8],
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	return userID
}

func TestStorage_New(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NotNil(t, s)
}

func TestStorage_MigrationsIdempotent(t *testing.T) {
	path := t.TempDir() + "/server.db"

	s, err := New(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Повторное открытие того же файла не должно падать на миграциях
	s, err = New(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
