package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/inkpad/internal/models"
	"github.com/iudanet/inkpad/internal/server/storage"
)

// UpsertNotebook stores a whole-notebook snapshot for the owner.
// Запись last-write-wins: snapshot сохраняется только если он не старше
// уже сохраненного.
func (s *Storage) UpsertNotebook(ctx context.Context, ownerID string, nb *models.Notebook) (bool, error) {
	var existing time.Time
	query := `SELECT modified_at FROM notebooks WHERE id = ? AND owner_id = ?`

	err := s.db.QueryRowContext(ctx, query, nb.ID, ownerID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Новая тетрадь, сравнивать не с чем
	case err != nil:
		return false, fmt.Errorf("failed to check existing notebook: %w", err)
	case existing.After(nb.ModifiedAt):
		// Сохраненная версия новее - snapshot отбрасывается
		return false, nil
	}

	snapshot, err := json.Marshal(nb)
	if err != nil {
		return false, fmt.Errorf("failed to marshal notebook snapshot: %w", err)
	}

	insertQuery := `
		INSERT OR REPLACE INTO notebooks (id, owner_id, snapshot, modified_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, insertQuery, nb.ID, ownerID, string(snapshot), nb.ModifiedAt); err != nil {
		return false, fmt.Errorf("failed to upsert notebook: %w", err)
	}

	return true, nil
}

// GetNotebook retrieves a single notebook by ID
func (s *Storage) GetNotebook(ctx context.Context, ownerID, id string) (*models.Notebook, error) {
	query := `SELECT snapshot FROM notebooks WHERE id = ? AND owner_id = ?`

	var snapshot string
	err := s.db.QueryRowContext(ctx, query, id, ownerID).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotebookNotFound
		}
		return nil, fmt.Errorf("failed to get notebook: %w", err)
	}

	nb := &models.Notebook{}
	if err := json.Unmarshal([]byte(snapshot), nb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notebook snapshot: %w", err)
	}

	return nb, nil
}

// ListNotebooks retrieves every notebook of the owner
func (s *Storage) ListNotebooks(ctx context.Context, ownerID string) ([]*models.Notebook, error) {
	query := `SELECT snapshot FROM notebooks WHERE owner_id = ? ORDER BY modified_at DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notebooks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	notebooks := []*models.Notebook{}

	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("failed to scan notebook: %w", err)
		}

		nb := &models.Notebook{}
		if err := json.Unmarshal([]byte(snapshot), nb); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notebook snapshot: %w", err)
		}
		notebooks = append(notebooks, nb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return notebooks, nil
}

// DeleteNotebook removes a notebook by ID
func (s *Storage) DeleteNotebook(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM notebooks WHERE id = ? AND owner_id = ?`

	result, err := s.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete notebook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrNotebookNotFound
	}

	return nil
}
