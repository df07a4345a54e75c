// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at temp dirs and resets
// the global Viper so commands never see a real config or .env file.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

const testDims = 4

// fakeOllama serves /api/generate and /api/embed. Chunking prompts get two
// sentences back; anything else gets a fixed answer.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/generate":
			var req struct {
				Prompt string `json:"prompt"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			resp := "오전 9시에 문을 엽니다."
			if strings.Contains(req.Prompt, "가게 소개:") {
				resp = "저희 카페는 오전 9시에 문을 엽니다.\n주차는 건물 뒤편에 가능합니다."
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"response": resp, "done": true})
		case "/api/embed":
			var req struct {
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			vecs := make([][]float32, len(req.Input))
			for i, in := range req.Input {
				vecs[i] = hashVector(in)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vecs})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hashVector(text string) []float32 {
	vec := make([]float32, testDims)
	for _, word := range strings.Fields(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%testDims]++
	}
	vec[0] += 0.1
	return vec
}
