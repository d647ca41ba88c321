package boltdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/inkpad/internal/client/storage"
)

const (
	keyLastSyncTime = "last_sync_time"
	keyDeviceID     = "device_id"
)

// SaveLastSyncTime saves the wall-clock time of the last successful sync
func (s *Storage) SaveLastSyncTime(ctx context.Context, t time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		value, err := t.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal time: %w", err)
		}

		if err := bucket.Put([]byte(keyLastSyncTime), value); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}
		return nil
	})
}

// GetLastSyncTime retrieves the time of the last successful sync.
// Returns the zero time if no sync has completed yet.
func (s *Storage) GetLastSyncTime(ctx context.Context) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var t time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		value := bucket.Get([]byte(keyLastSyncTime))
		if value == nil {
			// Синхронизация еще не выполнялась
			return nil
		}

		if err := t.UnmarshalBinary(value); err != nil {
			return fmt.Errorf("failed to unmarshal time: %w", err)
		}
		return nil
	})

	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return t, nil
}

// DeviceID returns the stable identifier of this device, generating and
// persisting one on first call. Идентификатор помечает исходящие события,
// чтобы устройство не реагировало на собственные изменения.
func (s *Storage) DeviceID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var deviceID string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if value := bucket.Get([]byte(keyDeviceID)); value != nil {
			deviceID = string(value)
			return nil
		}

		deviceID = uuid.New().String()
		if err := bucket.Put([]byte(keyDeviceID), []byte(deviceID)); err != nil {
			return fmt.Errorf("failed to save device id: %w", err)
		}
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	return deviceID, nil
}
