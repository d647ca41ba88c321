package storage

import (
	"context"

	"github.com/iudanet/inkpad/internal/models"
)

// ConflictStore keeps unresolved manual-strategy conflicts durable so that
// a restart does not lose decisions the user still owes.
type ConflictStore interface {
	// SaveConflict stores or replaces a conflict record keyed by entity id
	SaveConflict(ctx context.Context, conflict *models.SyncConflict) error

	// GetConflict retrieves a conflict by entity id.
	// Returns ErrConflictNotFound if no conflict is pending for the entity.
	GetConflict(ctx context.Context, entityID string) (*models.SyncConflict, error)

	// ListConflicts returns all unresolved conflicts
	ListConflicts(ctx context.Context) ([]*models.SyncConflict, error)

	// DeleteConflict removes a conflict after the user resolved it
	DeleteConflict(ctx context.Context, entityID string) error
}
