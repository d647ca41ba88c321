package storage

import (
	"context"

	"github.com/iudanet/inkpad/internal/models"
)

// ChangeLedger defines the durable ordered log of uncommitted local
// mutations. Insertion order is preserved; the ledger never coalesces
// entries itself — коалесценция, если нужна, выполняется оркестратором
// перед загрузкой на сервер.
type ChangeLedger interface {
	// Append stores a pending change at the tail of the log
	Append(ctx context.Context, change *models.PendingChange) error

	// Remove deletes a change by its id.
	// Called strictly after the remote store acknowledged durability.
	Remove(ctx context.Context, id string) error

	// ListAll returns all pending changes in insertion order
	ListAll(ctx context.Context) ([]*models.PendingChange, error)

	// Clear removes all pending changes.
	// Used on logout and for full re-sync.
	Clear(ctx context.Context) error
}
