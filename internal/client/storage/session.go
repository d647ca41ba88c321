package storage

import "context"

// Session represents the authenticated principal on this device.
// The sync core only needs UserID to scope remote queries; tokens are
// refreshed by the auth service.
type Session struct {
	Username     string `json:"username"`
	UserID       string `json:"user_id"`
	DeviceID     string `json:"device_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}

// SessionStore defines durable storage for the current session
type SessionStore interface {
	// SaveSession stores the session data
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves the stored session.
	// Returns ErrSessionNotFound if no session exists.
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the stored session (logout)
	DeleteSession(ctx context.Context) error
}
