package storage

import (
	"context"

	"github.com/iudanet/inkpad/internal/models"
)

// CacheStore defines the durable local cache for the full notebook
// collection. It is the single source of truth for reads on this device:
// the UI never waits on the network, only the sync orchestrator refreshes
// the cache from the remote store.
type CacheStore interface {
	// Load returns the cached collection. Absence and corruption both
	// degrade to an empty collection: повреждение кэша логируется и
	// проглатывается, но никогда не приводит к падению приложения.
	Load(ctx context.Context) ([]*models.Notebook, error)

	// Save atomically overwrites the collection. A reader never observes
	// a partially written collection.
	Save(ctx context.Context, notebooks []*models.Notebook) error
}
