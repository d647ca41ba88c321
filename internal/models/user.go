package models

import "time"

// User представляет учетную запись на сервере.
// PasswordHash хранит PHC-строку Argon2id, сам пароль не сохраняется.
type User struct {
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
}

// RefreshToken представляет refresh token в хранилище сервера.
// DeviceID привязывает токен к устройству: при обновлении access token
// сервер восстанавливает устройство-источник для событий изменений.
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id"`
}
