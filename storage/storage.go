package storage

import (
	"context"
	"errors"
	"sync"

	"calltrack.pro/license/models"
)

// ErrDuplicateKey is returned by Insert when the key already exists.
var ErrDuplicateKey = errors.New("license key already exists")

// Storage is the license datastore. FindByKey returns (nil, nil) when no
// row matches; only real failures are errors.
type Storage interface {
	Insert(ctx context.Context, license *models.License) error
	FindByKey(ctx context.Context, key string) (*models.License, error)

	Ping(ctx context.Context) error
	Close() error
}

type MemoryStorage struct {
	mu       sync.RWMutex
	licenses map[string]models.License
}

func NewMemoryStorage(licenses ...models.License) *MemoryStorage {
	m := &MemoryStorage{licenses: make(map[string]models.License)}
	for _, l := range licenses {
		m.licenses[l.Key] = l
	}
	return m
}

func (m *MemoryStorage) Insert(ctx context.Context, license *models.License) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.licenses[license.Key]; exists {
		return ErrDuplicateKey
	}
	m.licenses[license.Key] = *license
	return nil
}

func (m *MemoryStorage) FindByKey(ctx context.Context, key string) (*models.License, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	license, exists := m.licenses[key]
	if !exists {
		return nil, nil
	}
	return &license, nil
}

// SetActive flips the active flag of an existing key, the way an operator
// would in the datastore console. It reports whether the key existed.
func (m *MemoryStorage) SetActive(key string, active bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	license, exists := m.licenses[key]
	if !exists {
		return false
	}
	license.Active = active
	m.licenses[key] = license
	return true
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.licenses)
}

// Keys returns every stored key in no particular order.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.licenses))
	for k := range m.licenses {
		keys = append(keys, k)
	}
	return keys
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStorage) Close() error {
	return nil
}
