// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package qdrant

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/shopkeep-dev/shopkeep/internal/store"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// pointNamespace derives stable point UUIDs from sentence ids; Qdrant only
// accepts unsigned integers or UUIDs as point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://shopkeep.dev/qdrant/sentences"))

var _ store.SentenceIndex = (*Index)(nil)

// Index implements store.SentenceIndex on one Qdrant collection. Records
// carry store_id in their payload and every request filters on it.
//
// Replace is delete-by-filter followed by upsert, so a concurrent reader
// may briefly see the store empty.
type Index struct {
	c          *client
	collection string
	dimensions int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
}

// Open connects to Qdrant and creates the collection when missing.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Index, error) {
	if cfg.Collection == "" {
		return nil, shoperr.New(shoperr.CodeStoreInvalidInput, "qdrant collection must not be empty")
	}
	if cfg.Dimensions <= 0 {
		return nil, shoperr.Errorf(shoperr.CodeStoreInvalidInput, "dimensions must be positive, got %d", cfg.Dimensions)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{
		c:          newClient(cfg.URL, cfg.APIKey, o.timeout),
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) path(suffix string) string {
	return "/collections/" + url.PathEscape(i.collection) + suffix
}

func (i *Index) ensureCollection(ctx context.Context) error {
	status, err := i.c.do(ctx, http.MethodGet, i.path(""), nil, nil, nil)
	if err == nil {
		return nil
	}
	if status != http.StatusNotFound {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{"size": i.dimensions, "distance": "Cosine"},
	}
	if _, err := i.c.do(ctx, http.MethodPut, i.path(""), nil, body, nil); err != nil {
		return err
	}

	index := map[string]any{"field_name": "store_id", "field_schema": "keyword"}
	if _, err := i.c.do(ctx, http.MethodPut, i.path("/index"), waitQuery(), index, nil); err != nil {
		return err
	}
	slog.Info("created qdrant collection", "collection", i.collection, "dimensions", i.dimensions)
	return nil
}

func storeFilter(storeID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "store_id", "match": map[string]any{"value": storeID}},
		},
	}
}

func waitQuery() url.Values {
	return url.Values{"wait": []string{"true"}}
}

func pointID(sentenceID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(sentenceID)).String()
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (i *Index) Replace(ctx context.Context, storeID string, documents []string, embeddings [][]float32) error {
	records, err := store.BuildRecords(storeID, documents, embeddings, i.dimensions)
	if err != nil {
		return err
	}

	if _, err := i.DeleteAll(ctx, storeID); err != nil {
		// A failed cleanup must not block registration; stale points are
		// overwritten by id where positions overlap.
		slog.Warn("qdrant: clearing previous sentences failed", "store_id", storeID, "error", err)
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for n, r := range records {
		points[n] = point{
			ID:     pointID(r.ID),
			Vector: r.Embedding,
			Payload: map[string]any{
				"id":       r.ID,
				"store_id": r.StoreID,
				"position": r.Position,
				"document": r.Document,
			},
		}
	}
	_, err = i.c.do(ctx, http.MethodPut, i.path("/points"), waitQuery(), map[string]any{"points": points}, nil)
	return shoperr.With(err, shoperr.FieldStoreID(storeID))
}

func (i *Index) DeleteAll(ctx context.Context, storeID string) (int, error) {
	if storeID == "" {
		return 0, shoperr.New(shoperr.CodeStoreInvalidInput, "store id must not be empty")
	}

	var count struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	countReq := map[string]any{"filter": storeFilter(storeID), "exact": true}
	if _, err := i.c.do(ctx, http.MethodPost, i.path("/points/count"), nil, countReq, &count); err != nil {
		return 0, err
	}
	if count.Result.Count == 0 {
		return 0, nil
	}

	delReq := map[string]any{"filter": storeFilter(storeID)}
	if _, err := i.c.do(ctx, http.MethodPost, i.path("/points/delete"), waitQuery(), delReq, nil); err != nil {
		return 0, err
	}
	return count.Result.Count, nil
}

func (i *Index) Query(ctx context.Context, storeID string, vector []float32, k int) ([]store.Hit, error) {
	if err := store.CheckQuery(storeID, vector, k, i.dimensions); err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"filter":       storeFilter(storeID),
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				ID       string `json:"id"`
				StoreID  string `json:"store_id"`
				Position int    `json:"position"`
				Document string `json:"document"`
			} `json:"payload"`
		} `json:"result"`
	}
	if _, err := i.c.do(ctx, http.MethodPost, i.path("/points/search"), nil, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]store.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, store.Hit{
			ID:       r.Payload.ID,
			StoreID:  r.Payload.StoreID,
			Position: r.Payload.Position,
			Document: r.Payload.Document,
			// Qdrant reports cosine similarity; convert to distance.
			Distance: 1 - r.Score,
		})
	}
	return hits, nil
}

func (i *Index) Close() error { return nil }
