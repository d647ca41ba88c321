package auth

import (
	"context"

	"github.com/iudanet/inkpad/internal/client/storage"
)

// Service defines the main interface for authentication operations.
// Сервис владеет сессией устройства: регистрация, вход, выход и прозрачное
// обновление access token для остальных компонентов клиента.
type Service interface {
	// Register регистрирует нового пользователя.
	// Не выполняет вход: вызывающая сторона делает Login следом.
	Register(ctx context.Context, username, password string) (string, error)

	// Login выполняет аутентификацию и сохраняет сессию устройства
	Login(ctx context.Context, username, password string) (*storage.Session, error)

	// Logout удаляет локальную сессию.
	// Кэш и журнал изменений не трогаются: данные принадлежат устройству.
	Logout(ctx context.Context) error

	// Session возвращает текущую сессию.
	// Возвращает storage.ErrSessionNotFound если вход не выполнен.
	Session(ctx context.Context) (*storage.Session, error)

	// IsAuthenticated сообщает, есть ли сохраненная сессия
	IsAuthenticated(ctx context.Context) (bool, error)

	// AccessToken возвращает валидный access token, обновляя его по
	// refresh token при истечении. Реализует remote.CredentialSource.
	AccessToken(ctx context.Context) (string, error)

	// UserID возвращает идентификатор аутентифицированного пользователя
	UserID(ctx context.Context) (string, error)

	// DeviceID возвращает стабильный идентификатор этого устройства
	DeviceID(ctx context.Context) (string, error)
}
