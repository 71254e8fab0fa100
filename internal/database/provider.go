package database

import (
	"fmt"
	"sync"
)

var (
	mu                  sync.RWMutex
	postgresStore       func() Store
	memoryStore         func() Store
	catalogWatcher      CatalogWatcher
	postgresInitialized bool
)

// RegisterPostgresBackend registers the PostgreSQL store constructor.
// This is called by the serve command to avoid import cycles.
func RegisterPostgresBackend(store func() Store) {
	mu.Lock()
	defer mu.Unlock()
	postgresStore = store
	postgresInitialized = true
}

// RegisterMemoryBackend registers the in-memory store used when no DATABASE_URL is set.
func RegisterMemoryBackend(store func() Store) {
	mu.Lock()
	defer mu.Unlock()
	memoryStore = store
}

// RegisterCatalogWatcher registers the change feed for catalog reloads.
func RegisterCatalogWatcher(w CatalogWatcher) {
	mu.Lock()
	defer mu.Unlock()
	catalogWatcher = w
}

// GetCatalogWatcher returns the registered watcher, or nil if not registered.
func GetCatalogWatcher() CatalogWatcher {
	mu.RLock()
	defer mu.RUnlock()
	return catalogWatcher
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return postgresInitialized
}

// GetStore returns the PostgreSQL store if registered, otherwise the in-memory one.
func GetStore() (Store, error) {
	mu.RLock()
	defer mu.RUnlock()
	if postgresInitialized && postgresStore != nil {
		return postgresStore(), nil
	}
	if memoryStore != nil {
		return memoryStore(), nil
	}
	return nil, fmt.Errorf("no storage backend registered")
}

// ResetBackends clears all registrations. Used by tests.
func ResetBackends() {
	mu.Lock()
	defer mu.Unlock()
	postgresStore = nil
	memoryStore = nil
	catalogWatcher = nil
	postgresInitialized = false
}
