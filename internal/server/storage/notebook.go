package storage

import (
	"context"

	"github.com/iudanet/inkpad/internal/models"
)

// NotebookStorage defines interface for notebook snapshot persistence.
// Все операции ограничены владельцем: чужие тетради невидимы.
type NotebookStorage interface {
	// UpsertNotebook stores a whole-notebook snapshot for the owner.
	// Снимок записывается только если его modified_at не старше
	// сохраненного. Returns true if the snapshot was written, false if
	// the stored version is newer.
	UpsertNotebook(ctx context.Context, ownerID string, nb *models.Notebook) (bool, error)

	// GetNotebook retrieves a single notebook by ID
	// Returns ErrNotebookNotFound if it doesn't exist or belongs to another owner
	GetNotebook(ctx context.Context, ownerID, id string) (*models.Notebook, error)

	// ListNotebooks retrieves every notebook of the owner
	// Returns empty slice if there are none
	ListNotebooks(ctx context.Context, ownerID string) ([]*models.Notebook, error)

	// DeleteNotebook removes a notebook by ID
	// Returns ErrNotebookNotFound if it doesn't exist or belongs to another owner
	DeleteNotebook(ctx context.Context, ownerID, id string) error
}
