// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package qdrant

import (
	"context"
	"time"

	"github.com/shopkeep-dev/shopkeep/internal/store"
)

type options struct {
	timeout time.Duration
}

// Option configures Open.
type Option func(*options)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func init() {
	store.RegisterBackend("qdrant", func(cfg store.Config) (store.SentenceIndex, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return Open(ctx, Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.Collection,
			Dimensions: cfg.Dimensions,
		}, WithTimeout(cfg.Timeout))
	})
}
