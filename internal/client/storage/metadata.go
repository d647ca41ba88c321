package storage

import (
	"context"
	"time"
)

// MetadataStore defines storage for small client-side sync metadata
type MetadataStore interface {
	// SaveLastSyncTime saves the wall-clock time of the last successful sync
	SaveLastSyncTime(ctx context.Context, t time.Time) error

	// GetLastSyncTime retrieves the time of the last successful sync.
	// Returns the zero time if no sync has completed yet.
	GetLastSyncTime(ctx context.Context) (time.Time, error)

	// DeviceID returns the stable identifier of this device,
	// generating and persisting one on first call.
	DeviceID(ctx context.Context) (string, error)
}
