// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package secrets

import (
	"errors"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"github.com/zalando/go-keyring"
)

// KeyringStore implements Store on the OS keyring (Keychain, Secret
// Service or Windows Credential Manager).
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (KeyringStore) Set(service, key, value string) error {
	if err := checkName(service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return shoperr.Wrapf(err, shoperr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (KeyringStore) Get(service, key string) (string, error) {
	if err := checkName(service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", notFound(service, key)
	}
	if err != nil {
		return "", shoperr.Wrapf(err, shoperr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (KeyringStore) Delete(service, key string) error {
	if err := checkName(service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return notFound(service, key)
	}
	if err != nil {
		return shoperr.Wrapf(err, shoperr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}

func checkName(service, key string) error {
	if service == "" || key == "" {
		return shoperr.New(shoperr.CodeSecretInvalidInput, "secret service and key must not be empty")
	}
	return nil
}

func notFound(service, key string) error {
	return shoperr.Errorf(shoperr.CodeSecretNotFound, "secret %s/%s not found", service, key)
}
