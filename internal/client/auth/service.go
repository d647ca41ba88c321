// Package auth implements the client session service: регистрация, вход,
// выход и прозрачное обновление access token. Остальной клиент получает
// учетные данные только через интерфейс remote.CredentialSource.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/inkpad/internal/client/remote"
	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/validation"
	"github.com/iudanet/inkpad/pkg/api"
)

// tokenSkew запас до истечения access token, после которого токен
// обновляется превентивно
const tokenSkew = 30 * time.Second

// service реализует Service поверх HTTP клиента и локального хранилища
type service struct {
	client   *remote.Client
	sessions storage.SessionStore
	metadata storage.MetadataStore
	logger   *slog.Logger

	// mu сериализует обновление токена: параллельные вызовы AccessToken
	// не должны тратить один refresh token дважды
	mu sync.Mutex
}

// NewService creates the auth service.
// client используется только для неаутентифицированных auth endpoints,
// поэтому может быть создан с nil CredentialSource.
func NewService(client *remote.Client, sessions storage.SessionStore, metadata storage.MetadataStore, logger *slog.Logger) Service {
	return &service{
		client:   client,
		sessions: sessions,
		metadata: metadata,
		logger:   logger,
	}
}

// Register регистрирует нового пользователя
func (s *service) Register(ctx context.Context, username, password string) (string, error) {
	// Валидация входных данных
	if err := validation.ValidateUsername(username); err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.client.Register(ctx, api.RegisterRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}

	s.logger.Info("user registered", "username", username, "user_id", resp.UserID)
	return resp.UserID, nil
}

// Login выполняет аутентификацию и сохраняет сессию устройства
func (s *service) Login(ctx context.Context, username, password string) (*storage.Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	// DeviceID генерируется при первом обращении и живет дольше сессий
	deviceID, err := s.metadata.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device id: %w", err)
	}

	resp, err := s.client.Login(ctx, api.LoginRequest{
		Username: username,
		Password: password,
		DeviceID: deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session := &storage.Session{
		Username:     username,
		UserID:       resp.UserID,
		DeviceID:     deviceID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Unix() + resp.ExpiresIn,
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("logged in", "username", username, "user_id", resp.UserID)
	return session, nil
}

// Logout удаляет локальную сессию
func (s *service) Logout(ctx context.Context) error {
	if err := s.sessions.DeleteSession(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// Session возвращает текущую сессию
func (s *service) Session(ctx context.Context) (*storage.Session, error) {
	return s.sessions.GetSession(ctx)
}

// IsAuthenticated сообщает, есть ли сохраненная сессия
func (s *service) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := s.sessions.GetSession(ctx)
	if err == storage.ErrSessionNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AccessToken возвращает валидный access token, обновляя истекший
func (s *service) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.GetSession(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}

	// Токен еще жив с запасом - используем как есть
	if time.Now().Add(tokenSkew).Unix() < session.ExpiresAt {
		return session.AccessToken, nil
	}

	refreshed, err := s.refreshLocked(ctx, session)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// UserID возвращает идентификатор аутентифицированного пользователя
func (s *service) UserID(ctx context.Context) (string, error) {
	session, err := s.sessions.GetSession(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	return session.UserID, nil
}

// DeviceID возвращает стабильный идентификатор этого устройства
func (s *service) DeviceID(ctx context.Context) (string, error) {
	return s.metadata.DeviceID(ctx)
}

// refreshLocked обменивает refresh token на новую пару токенов.
// Caller holds s.mu.
func (s *service) refreshLocked(ctx context.Context, session *storage.Session) (*storage.Session, error) {
	resp, err := s.client.Refresh(ctx, api.RefreshRequest{
		RefreshToken: session.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	session.AccessToken = resp.AccessToken
	session.RefreshToken = resp.RefreshToken
	session.ExpiresAt = time.Now().Unix() + resp.ExpiresIn

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save refreshed session: %w", err)
	}

	s.logger.Debug("access token refreshed", "user_id", session.UserID)
	return session, nil
}
