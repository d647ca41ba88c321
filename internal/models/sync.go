package models

import "time"

// ErrorKind classifies sync failures for the UI
type ErrorKind string

const (
	// ErrorKindTransient сетевые таймауты, rate limit, недоступность сервера.
	// Повторяется с экспоненциальным backoff.
	ErrorKindTransient ErrorKind = "transient_network"

	// ErrorKindPermanent отказ авторизации или невалидный payload.
	// Изменение отбрасывается, пользователь получает уведомление.
	ErrorKindPermanent ErrorKind = "permanent"

	// ErrorKindLocalPersistence повреждение локального хранилища.
	// Load деградирует до пустой коллекции, никогда не паникует.
	ErrorKindLocalPersistence ErrorKind = "local_persistence"
)

// SyncStatus is the process-wide sync state owned by the orchestrator and
// observed by the UI. Zero LastSyncTime means no successful sync has
// completed yet; empty LastError means the previous cycle succeeded.
type SyncStatus struct {
	LastSyncTime time.Time `json:"last_sync_time"`
	LastError    ErrorKind `json:"last_error,omitempty"`
	LastErrorMsg string    `json:"last_error_msg,omitempty"`
	IsSyncing    bool      `json:"is_syncing"`
}

// SyncConflict is a deferred resolution produced by the Manual strategy.
// The entity stays in its local state until the user explicitly resolves it;
// records are durable so a restart does not lose pending decisions.
type SyncConflict struct {
	DetectedAt       time.Time `json:"detected_at"`
	LocalModifiedAt  time.Time `json:"local_modified_at"`
	RemoteModifiedAt time.Time `json:"remote_modified_at"`
	ID               string    `json:"id"`
	EntityID         string    `json:"entity_id"`
	Local            *Notebook `json:"local"`
	Remote           *Notebook `json:"remote"`
}
