// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package qdrant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopkeep-dev/shopkeep/internal/store"
	"github.com/shopkeep-dev/shopkeep/internal/store/qdrant"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openIndex(t *testing.T, url string) *qdrant.Index {
	t.Helper()
	idx, err := qdrant.Open(context.Background(), qdrant.Config{
		URL:        url,
		APIKey:     "qd-key",
		Collection: "store_info",
		Dimensions: 2,
	})
	require.NoError(t, err)
	return idx
}

func TestOpen_CreatesCollection(t *testing.T) {
	fake, srv := newFakeQdrant(t)
	openIndex(t, srv.URL)

	assert.True(t, fake.created)
	assert.Equal(t, 2, fake.size)
	for _, k := range fake.apiKeys {
		assert.Equal(t, "qd-key", k)
	}

	// Second open finds the existing collection.
	openIndex(t, srv.URL)
}

func TestIndex_ReplaceQueryDelete(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeQdrant(t)
	idx := openIndex(t, srv.URL)

	require.NoError(t, idx.Replace(ctx, "cafe", []string{"old 1", "old 2", "old 3"}, [][]float32{{1, 0}, {0, 1}, {1, 1}}))
	require.NoError(t, idx.Replace(ctx, "cafe", []string{"new north", "new east"}, [][]float32{{0, 1}, {1, 0}}))
	require.NoError(t, idx.Replace(ctx, "other", []string{"other"}, [][]float32{{1, 0}}))
	assert.Len(t, fake.points, 3)

	hits, err := idx.Query(ctx, "cafe", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "new east", hits[0].Document)
	assert.Equal(t, "cafe_sent_1", hits[0].ID)
	assert.Equal(t, 1, hits[0].Position)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)

	n, err := idx.DeleteAll(ctx, "cafe")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = idx.DeleteAll(ctx, "cafe")
	require.NoError(t, err)
	assert.Zero(t, n)

	hits, err = idx.Query(ctx, "cafe", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Query(ctx, "other", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_ReplaceIgnoresCleanupFailure(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeQdrant(t)
	idx := openIndex(t, srv.URL)

	fake.failCount = true
	require.NoError(t, idx.Replace(ctx, "s", []string{"a"}, [][]float32{{1, 0}}))
	assert.Len(t, fake.points, 1)
}

func TestIndex_InvalidInput(t *testing.T) {
	_, srv := newFakeQdrant(t)
	idx := openIndex(t, srv.URL)

	err := idx.Replace(context.Background(), "s", []string{"a"}, nil)
	assert.True(t, shoperr.IsInvalidInput(err))

	_, err = idx.Query(context.Background(), "s", []float32{1, 0, 0}, 5)
	assert.True(t, shoperr.IsInvalidInput(err))
}

func TestIndex_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := qdrant.Open(context.Background(), qdrant.Config{URL: srv.URL, Collection: "store_info", Dimensions: 2})
	require.Error(t, err)
	assert.True(t, shoperr.IsUpstreamFailure(err))
	assert.Equal(t, http.StatusBadGateway, shoperr.HTTPStatus(err))
}

func TestPointIDIsStableUUID(t *testing.T) {
	a := qdrant.PointID(store.SentenceID("cafe", 0))
	b := qdrant.PointID(store.SentenceID("cafe", 0))
	c := qdrant.PointID(store.SentenceID("cafe", 1))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}

func TestRegisteredBackend(t *testing.T) {
	_, srv := newFakeQdrant(t)
	idx, err := store.New(store.Config{Backend: "qdrant", Collection: "store_info", Dimensions: 2, QdrantURL: srv.URL})
	require.NoError(t, err)
	_, ok := idx.(*qdrant.Index)
	assert.True(t, ok)
}
