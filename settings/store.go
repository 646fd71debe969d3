// Package settings persists the model, API key, developer message and port
// override between runs.
package settings

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/a-h/revchat/models"
)

// Store loads and saves settings. Save replaces everything that was saved
// before. Load returns zero settings if nothing has been saved.
type Store interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

// StoreCloser is a Store that holds resources.
type StoreCloser interface {
	Store
	io.Closer
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRqlite = "rqlite"
	BackendRedis  = "redis"
)

// Open returns a store for the backend. The location is a file path for the
// file and sqlite backends, and a URL for rqlite and redis. An empty location
// uses the default for the backend.
func Open(ctx context.Context, backend, location string) (StoreCloser, error) {
	switch backend {
	case "", BackendFile:
		if location == "" {
			dir, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			location = filepath.Join(dir, "settings.yaml")
		}
		return NewFileStore(location), nil
	case BackendSQLite:
		if location == "" {
			dir, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			location = filepath.Join(dir, "settings.db")
		}
		return NewSQLiteStore(ctx, location)
	case BackendRqlite:
		if location == "" {
			location = "http://localhost:4001"
		}
		return NewRqliteStore(location, DefaultProfile)
	case BackendRedis:
		if location == "" {
			location = "redis://localhost:6379/0"
		}
		return NewRedisStore(ctx, location, DefaultRedisKey)
	}
	return nil, fmt.Errorf("unknown settings backend %q", backend)
}

// DefaultDir is the directory used for settings files when no location is
// given.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to find user config directory: %w", err)
	}
	return filepath.Join(dir, "revchat"), nil
}

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	m        sync.Mutex
	settings models.Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) Load(ctx context.Context) (models.Settings, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	return ms.settings, nil
}

func (ms *MemoryStore) Save(ctx context.Context, s models.Settings) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.settings = s
	return nil
}

func (ms *MemoryStore) Close() error {
	return nil
}
