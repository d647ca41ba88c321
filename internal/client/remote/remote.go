// Package remote defines the abstract client over the remote object store.
// The sync orchestrator depends only on these contracts; the HTTP/WebSocket
// implementation lives alongside but is swappable in tests.
package remote

import (
	"context"

	"github.com/iudanet/inkpad/internal/models"
	"github.com/iudanet/inkpad/pkg/api"
)

// Store is the asynchronous client over the remote object store.
// All operations may fail; failures carry a Transient/Permanent
// classification that drives the orchestrator's retry policy.
//
// Queries are scoped to the current principal supplied by the
// CredentialSource: сервер выводит владельца из access token, клиент
// никогда не передает чужой owner scope явно.
type Store interface {
	// Upsert creates or replaces a notebook snapshot, keyed by id.
	// Idempotent: повторная загрузка того же snapshot дает то же
	// состояние на сервере, дубликаты at-least-once доставки безвредны.
	Upsert(ctx context.Context, notebook *models.Notebook) (*api.UpsertAck, error)

	// Delete removes a notebook by id
	Delete(ctx context.Context, notebookID string) (*api.UpsertAck, error)

	// ListAll returns every notebook owned by the current principal
	ListAll(ctx context.Context) ([]*models.Notebook, error)

	// Subscribe opens a best-effort push channel for change events.
	// The orchestrator must not depend on it for correctness, only
	// for latency; polling remains the source of truth.
	Subscribe(ctx context.Context) (*Subscription, error)
}

// CredentialSource supplies the identity and token of the current principal.
// Authentication itself is owned by the auth service; the remote client only
// consumes a valid token to scope its requests.
type CredentialSource interface {
	// AccessToken returns a currently valid access token
	AccessToken(ctx context.Context) (string, error)

	// UserID returns the id of the authenticated principal
	UserID(ctx context.Context) (string, error)

	// DeviceID returns the stable identifier of this device
	DeviceID(ctx context.Context) (string, error)
}

// Subscription is a live change-event stream. Events stops delivering when
// the subscription is closed or the underlying connection fails; consumers
// detect closure via channel close and simply fall back to polling.
type Subscription struct {
	// Events delivers change notifications until closed
	Events <-chan api.ChangeEvent

	cancel context.CancelFunc
}

// Close tears down the subscription and its connection
func (s *Subscription) Close() {
	s.cancel()
}
