// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package qdrant_test

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

type fakePoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type filterReq struct {
	Must []struct {
		Key   string `json:"key"`
		Match struct {
			Value string `json:"value"`
		} `json:"match"`
	} `json:"must"`
}

func (f filterReq) storeID() string {
	for _, m := range f.Must {
		if m.Key == "store_id" {
			return m.Match.Value
		}
	}
	return ""
}

// fakeQdrant keeps one collection in memory and serves the REST calls the
// index makes.
type fakeQdrant struct {
	mu        sync.Mutex
	created   bool
	size      int
	points    map[string]fakePoint
	apiKeys   []string
	failCount bool
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	f := &fakeQdrant{points: map[string]fakePoint{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeQdrant) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	rest := strings.TrimPrefix(r.URL.Path, "/collections/store_info")
	switch {
	case r.Method == http.MethodGet && rest == "":
		if !f.created {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		writeResult(w, map[string]any{"status": "green"})

	case r.Method == http.MethodPut && rest == "":
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = true
		f.size = body.Vectors.Size
		writeResult(w, true)

	case r.Method == http.MethodPut && rest == "/index":
		writeResult(w, map[string]any{"status": "completed"})

	case r.Method == http.MethodPut && rest == "/points":
		var body struct {
			Points []fakePoint `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			f.points[p.ID] = p
		}
		writeResult(w, map[string]any{"status": "completed"})

	case r.Method == http.MethodPost && rest == "/points/count":
		if f.failCount {
			http.Error(w, `{"status":{"error":"boom"}}`, http.StatusInternalServerError)
			return
		}
		var body struct {
			Filter filterReq `json:"filter"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeResult(w, map[string]any{"count": len(f.matching(body.Filter.storeID()))})

	case r.Method == http.MethodPost && rest == "/points/delete":
		var body struct {
			Filter filterReq `json:"filter"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range f.matching(body.Filter.storeID()) {
			delete(f.points, p.ID)
		}
		writeResult(w, map[string]any{"status": "completed"})

	case r.Method == http.MethodPost && rest == "/points/search":
		var body struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
			Filter filterReq `json:"filter"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type scored struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		}
		var out []scored
		for _, p := range f.matching(body.Filter.storeID()) {
			out = append(out, scored{Score: cosine(body.Vector, p.Vector), Payload: p.Payload})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
		if len(out) > body.Limit {
			out = out[:body.Limit]
		}
		writeResult(w, out)

	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func (f *fakeQdrant) matching(storeID string) []fakePoint {
	var out []fakePoint
	for _, p := range f.points {
		if p.Payload["store_id"] == storeID {
			out = append(out, p)
		}
	}
	return out
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok"})
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
