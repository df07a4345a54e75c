// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package knowledge_test

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/shopkeep-dev/shopkeep/internal/store"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.reply(prompt)
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// chunkThenAnswer replies with chunks to chunking prompts and with answer
// to everything else.
func chunkThenAnswer(chunks, answer string) func(string) (string, error) {
	return func(prompt string) (string, error) {
		if strings.Contains(prompt, "가게 소개:") {
			return chunks, nil
		}
		return answer, nil
	}
}

const fakeDims = 8

// fakeEmbedder maps each text to a deterministic bag-of-words vector.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEmbedder) Dimensions() int { return fakeDims }

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = wordVector(t)
	}
	return out, nil
}

func wordVector(text string) []float32 {
	v := make([]float32, fakeDims)
	for _, w := range strings.Fields(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%fakeDims]++
	}
	return v
}

// memIndex is an in-memory store.SentenceIndex ranking by squared distance.
type memIndex struct {
	mu       sync.Mutex
	records  map[string][]store.Record
	replaces int
	lastK    int
	queryErr error
	fixed    []store.Hit
}

func newMemIndex() *memIndex {
	return &memIndex{records: map[string][]store.Record{}}
}

func (m *memIndex) Replace(_ context.Context, storeID string, docs []string, embs [][]float32) error {
	records, err := store.BuildRecords(storeID, docs, embs, fakeDims)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	m.records[storeID] = records
	return nil
}

func (m *memIndex) DeleteAll(_ context.Context, storeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records[storeID])
	delete(m.records, storeID)
	return n, nil
}

func (m *memIndex) Query(_ context.Context, storeID string, vec []float32, k int) ([]store.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastK = k
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.fixed != nil {
		return m.fixed, nil
	}

	var hits []store.Hit
	for _, r := range m.records[storeID] {
		var d float64
		for i := range vec {
			diff := float64(vec[i] - r.Embedding[i])
			d += diff * diff
		}
		hits = append(hits, store.Hit{ID: r.ID, StoreID: r.StoreID, Position: r.Position, Document: r.Document, Distance: d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *memIndex) Close() error { return nil }

func (m *memIndex) documents(storeID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.records[storeID] {
		out = append(out, r.Document)
	}
	return out
}
