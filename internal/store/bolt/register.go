// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package bolt

import (
	"os"
	"path/filepath"

	"github.com/shopkeep-dev/shopkeep/internal/store"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// DBFile is the database file name inside the data directory.
const DBFile = "sentences.bolt"

func init() {
	store.RegisterBackend("bolt", open)
}

func open(cfg store.Config) (store.SentenceIndex, error) {
	if cfg.DataDir == "" {
		return nil, shoperr.New(shoperr.CodeStoreInvalidInput, "bolt backend requires a data directory")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, shoperr.Wrapf(err, shoperr.CodeStoreDatabaseFailure, "creating data directory %s", cfg.DataDir)
	}
	return Open(filepath.Join(cfg.DataDir, DBFile), cfg.Collection, cfg.Dimensions)
}
