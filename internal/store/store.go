// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package store defines the sentence index that backs store knowledge and
// the registry of index backends.
package store

import (
	"context"
	"fmt"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// SentenceIndex stores embedded sentences scoped by store id. Every query
// and delete is filtered by store id.
type SentenceIndex interface {
	// Replace removes every record for storeID, then inserts one record per
	// document with id SentenceID(storeID, i).
	Replace(ctx context.Context, storeID string, documents []string, embeddings [][]float32) error

	// DeleteAll removes every record for storeID and returns how many were
	// removed. Deleting an unknown store returns 0 and no error.
	DeleteAll(ctx context.Context, storeID string) (int, error)

	// Query returns up to k records for storeID, nearest first.
	Query(ctx context.Context, storeID string, vector []float32, k int) ([]Hit, error)

	Close() error
}

// Hit is one query result.
type Hit struct {
	ID       string  `json:"id"`
	StoreID  string  `json:"store_id"`
	Position int     `json:"position"`
	Document string  `json:"document"`
	Distance float64 `json:"distance"`
}

// Record is a sentence ready to be written.
type Record struct {
	ID        string
	StoreID   string
	Position  int
	Document  string
	Embedding []float32
}

// SentenceID returns the record id for the i-th sentence of a store.
func SentenceID(storeID string, i int) string {
	return fmt.Sprintf("%s_sent_%d", storeID, i)
}

// BuildRecords validates a Replace call and pairs documents with their
// embeddings. dims of zero skips the dimension check.
func BuildRecords(storeID string, documents []string, embeddings [][]float32, dims int) ([]Record, error) {
	if storeID == "" {
		return nil, shoperr.New(shoperr.CodeStoreInvalidInput, "store id must not be empty")
	}
	if len(documents) != len(embeddings) {
		return nil, shoperr.New(shoperr.CodeStoreInvalidInput,
			fmt.Sprintf("got %d documents but %d embeddings", len(documents), len(embeddings)),
			shoperr.FieldStoreID(storeID))
	}

	records := make([]Record, len(documents))
	for i, doc := range documents {
		if dims > 0 && len(embeddings[i]) != dims {
			return nil, shoperr.New(shoperr.CodeStoreInvalidInput,
				fmt.Sprintf("embedding %d has %d dimensions, index expects %d", i, len(embeddings[i]), dims),
				shoperr.FieldStoreID(storeID))
		}
		records[i] = Record{
			ID:        SentenceID(storeID, i),
			StoreID:   storeID,
			Position:  i,
			Document:  doc,
			Embedding: embeddings[i],
		}
	}
	return records, nil
}

// CheckQuery validates Query arguments shared by every backend.
func CheckQuery(storeID string, vector []float32, k, dims int) error {
	if storeID == "" {
		return shoperr.New(shoperr.CodeStoreInvalidInput, "store id must not be empty")
	}
	if k <= 0 {
		return shoperr.Errorf(shoperr.CodeStoreInvalidInput, "k must be positive, got %d", k)
	}
	if dims > 0 && len(vector) != dims {
		return shoperr.Errorf(shoperr.CodeStoreInvalidInput,
			"query vector has %d dimensions, index expects %d", len(vector), dims)
	}
	return nil
}
