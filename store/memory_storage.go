package store

import "sync"

// MemoryStorage is an in-process Storage. Quota is the byte limit of a
// single item (key plus value); zero disables the check.
type MemoryStorage struct {
	Quota int64

	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage(quota int64) *MemoryStorage {
	return &MemoryStorage{Quota: quota, items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(key, value string) error {
	if err := checkQuota(m.Quota, key, value); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
