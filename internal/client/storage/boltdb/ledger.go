package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/models"
)

// Append stores a pending change at the tail of the ledger.
// Keys are monotonic bucket sequence numbers, поэтому порядок вставки
// совпадает с порядком обхода bucket'а.
func (s *Storage) Append(ctx context.Context, change *models.PendingChange) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLedger)
		if bucket == nil {
			return fmt.Errorf("ledger bucket not found")
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		change.Seq = seq

		data, err := json.Marshal(change)
		if err != nil {
			return fmt.Errorf("failed to marshal pending change: %w", err)
		}

		if err := bucket.Put(seqKey(seq), data); err != nil {
			return fmt.Errorf("failed to append change: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("append transaction failed: %w", err)
	}

	return nil
}

// Remove deletes a change by its id
func (s *Storage) Remove(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLedger)
		if bucket == nil {
			return storage.ErrChangeNotFound
		}

		// Журнал небольшой (несинхронизированные правки одного устройства),
		// линейный поиск по id дешевле поддержки вторичного индекса
		var key []byte
		err := bucket.ForEach(func(k, v []byte) error {
			var change models.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			if change.ID == id {
				key = append([]byte(nil), k...)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if key == nil {
			return storage.ErrChangeNotFound
		}
		return bucket.Delete(key)
	})

	if err != nil {
		if err == storage.ErrChangeNotFound {
			return err
		}
		return fmt.Errorf("remove transaction failed: %w", err)
	}

	return nil
}

// ListAll returns all pending changes in insertion order
func (s *Storage) ListAll(ctx context.Context) ([]*models.PendingChange, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var changes []*models.PendingChange

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLedger)
		if bucket == nil {
			return nil
		}

		// ForEach обходит ключи в байтовом порядке; big-endian sequence
		// ключи дают порядок вставки
		return bucket.ForEach(func(k, v []byte) error {
			var change models.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			changes = append(changes, &change)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}

	return changes, nil
}

// Clear removes all pending changes
func (s *Storage) Clear(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketLedger); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("failed to delete bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketLedger); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("clear transaction failed: %w", err)
	}

	return nil
}

// seqKey кодирует sequence number в big-endian ключ
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
