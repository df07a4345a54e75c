// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package store

import (
	"sort"
	"sync"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Factory opens a SentenceIndex for cfg.
type Factory func(cfg Config) (SentenceIndex, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend makes a backend available to New. Backend packages call
// it from init().
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New opens the backend named by cfg.Backend, defaulting to sqlite.
func New(cfg Config) (SentenceIndex, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "sqlite"
	}

	factoriesMu.RLock()
	f, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, shoperr.New(shoperr.CodeStoreBackendUnsupported,
			"unsupported storage backend: "+backend, shoperr.FieldBackend(backend))
	}
	if cfg.Dimensions <= 0 {
		return nil, shoperr.Errorf(shoperr.CodeStoreInvalidInput, "index dimensions must be positive, got %d", cfg.Dimensions)
	}
	return f(cfg)
}
