package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/models"
)

const (
	// cacheSchemaVersion версия формата кэша; несовпадение при Load
	// деградирует до пустой коллекции (точка для будущих миграций)
	cacheSchemaVersion = 1

	keyCollection = "collection"
)

// collectionEnvelope is the versioned on-disk form of the cached collection
type collectionEnvelope struct {
	SavedAt       time.Time          `json:"saved_at"`
	Notebooks     []*models.Notebook `json:"notebooks"`
	SchemaVersion int                `json:"schema_version"`
}

// Load returns the cached notebook collection.
// Missing or corrupt data degrades to an empty collection and is never fatal.
func (s *Storage) Load(ctx context.Context) ([]*models.Notebook, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var notebooks []*models.Notebook

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCache)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(keyCollection))
		if data == nil {
			// Кэш еще не записывался
			return nil
		}

		var envelope collectionEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			// Повреждение кэша проглатывается: лучше пустая коллекция,
			// чем упавшее приложение. Журнал изменений живет отдельно.
			s.logger.Warn("cache corrupt, loading empty collection", "error", err)
			return nil
		}

		if envelope.SchemaVersion != cacheSchemaVersion {
			s.logger.Warn("cache schema version mismatch, loading empty collection",
				"got", envelope.SchemaVersion, "want", cacheSchemaVersion)
			return nil
		}

		notebooks = envelope.Notebooks
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	if notebooks == nil {
		notebooks = []*models.Notebook{}
	}
	return notebooks, nil
}

// Save atomically overwrites the cached collection. BoltDB commits the
// write transaction as a unit, so a concurrent Load never observes a
// half-written collection.
func (s *Storage) Save(ctx context.Context, notebooks []*models.Notebook) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	envelope := collectionEnvelope{
		SchemaVersion: cacheSchemaVersion,
		SavedAt:       time.Now(),
		Notebooks:     notebooks,
	}

	data, err := json.Marshal(&envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketCache)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		if err := bucket.Put([]byte(keyCollection), data); err != nil {
			return fmt.Errorf("failed to save collection: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("save transaction failed: %w", err)
	}

	return nil
}
