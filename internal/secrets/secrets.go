// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package secrets keeps provider credentials out of config files. Config
// values of the form keyring://service/key are resolved against a Store
// after the config is loaded.
package secrets

import "sync"

// DefaultService is the keyring service the CLI writes under.
const DefaultService = "shopkeep"

// Store reads and writes secrets by service and key.
type Store interface {
	Set(service, key, value string) error
	// Get returns a CodeSecretNotFound error when the key does not exist.
	Get(service, key string) (string, error)
	Delete(service, key string) error
}

// MemoryStore is an in-process Store, used when no OS keyring is
// available and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]string)}
}

func (m *MemoryStore) Set(service, key, value string) error {
	if err := checkName(service, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[service+"/"+key] = value
	return nil
}

func (m *MemoryStore) Get(service, key string) (string, error) {
	if err := checkName(service, key); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.secrets[service+"/"+key]
	if !ok {
		return "", notFound(service, key)
	}
	return v, nil
}

func (m *MemoryStore) Delete(service, key string) error {
	if err := checkName(service, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[service+"/"+key]; !ok {
		return notFound(service, key)
	}
	delete(m.secrets, service+"/"+key)
	return nil
}
