// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package store

import "time"

// Config selects and parameterises an index backend.
type Config struct {
	Backend    string
	Collection string
	Dimensions int

	// DataDir holds file-based indexes (sqlite).
	DataDir string

	QdrantURL    string
	QdrantAPIKey string
	Timeout      time.Duration
}
