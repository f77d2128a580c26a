package store

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned by a Storage when a write would exceed
// its capacity.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is a string key/value area holding serialized blobs, the
// shape of browser local storage.
type Storage interface {
	// GetItem returns the value under key; ok is false when absent.
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

func checkQuota(quota int64, key, value string) error {
	if quota <= 0 {
		return nil
	}
	if size := int64(len(key) + len(value)); size > quota {
		return fmt.Errorf("writing %d bytes under %q (quota %d): %w", size, key, quota, ErrQuotaExceeded)
	}
	return nil
}
