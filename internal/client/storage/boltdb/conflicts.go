package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/models"
)

// SaveConflict stores or replaces a conflict record keyed by entity id.
// Повторное обнаружение конфликта для той же тетради заменяет старую
// запись — у пользователя всегда ровно одно висящее решение на сущность.
func (s *Storage) SaveConflict(ctx context.Context, conflict *models.SyncConflict) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(conflict)
	if err != nil {
		return fmt.Errorf("failed to marshal conflict: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return fmt.Errorf("conflicts bucket not found")
		}
		return bucket.Put([]byte(conflict.EntityID), data)
	})

	if err != nil {
		return fmt.Errorf("save conflict transaction failed: %w", err)
	}

	return nil
}

// GetConflict retrieves a conflict by entity id
func (s *Storage) GetConflict(ctx context.Context, entityID string) (*models.SyncConflict, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var conflict *models.SyncConflict

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return storage.ErrConflictNotFound
		}

		data := bucket.Get([]byte(entityID))
		if data == nil {
			return storage.ErrConflictNotFound
		}

		conflict = &models.SyncConflict{}
		if err := json.Unmarshal(data, conflict); err != nil {
			return fmt.Errorf("failed to unmarshal conflict: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return conflict, nil
}

// ListConflicts returns all unresolved conflicts
func (s *Storage) ListConflicts(ctx context.Context) ([]*models.SyncConflict, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var conflicts []*models.SyncConflict

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var conflict models.SyncConflict
			if err := json.Unmarshal(v, &conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict: %w", err)
			}
			conflicts = append(conflicts, &conflict)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}

	return conflicts, nil
}

// DeleteConflict removes a conflict after the user resolved it
func (s *Storage) DeleteConflict(ctx context.Context, entityID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket == nil {
			return storage.ErrConflictNotFound
		}
		if bucket.Get([]byte(entityID)) == nil {
			return storage.ErrConflictNotFound
		}
		return bucket.Delete([]byte(entityID))
	})

	if err != nil {
		if err == storage.ErrConflictNotFound {
			return err
		}
		return fmt.Errorf("delete conflict transaction failed: %w", err)
	}

	return nil
}
