// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/shopkeep-dev/shopkeep/internal/knowledge"
	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	"github.com/shopkeep-dev/shopkeep/internal/server"
	"github.com/shopkeep-dev/shopkeep/pkg/health"
	"github.com/stretchr/testify/require"
)

type mockKnowledge struct {
	register func(storeID, description string) (*knowledge.Registration, error)
	ask      func(storeID, question string) (*knowledge.Answer, error)
	forget   func(storeID string) (int, error)
}

func (m *mockKnowledge) Register(_ context.Context, storeID, description string) (*knowledge.Registration, error) {
	return m.register(storeID, description)
}

func (m *mockKnowledge) Ask(_ context.Context, storeID, question string) (*knowledge.Answer, error) {
	return m.ask(storeID, question)
}

func (m *mockKnowledge) Forget(_ context.Context, storeID string) (int, error) {
	return m.forget(storeID)
}

type mockEngine struct {
	lines []string
	err   error
}

func (m *mockEngine) Recognize(context.Context, image.Image) ([]ocr.Detection, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]ocr.Detection, len(m.lines))
	for i, l := range m.lines {
		out[i] = ocr.Detection{Text: l}
	}
	return out, nil
}

func (m *mockEngine) Close() error { return nil }

type mockProviders struct{ status []health.ProviderStatus }

func (m *mockProviders) Status() []health.ProviderStatus { return m.status }

func newTestServer(t *testing.T, k server.KnowledgeService, engine ocr.Engine, providers ...server.ProviderStatusService) *server.Server {
	t.Helper()
	if k == nil {
		k = &mockKnowledge{}
	}
	if engine == nil {
		engine = &mockEngine{}
	}
	svc, err := server.NewServices(k, ocr.NewService(engine, ocr.WithMaxUploadBytes(64*1024)), providers...)
	require.NoError(t, err)

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", Build: server.BuildInfo{Version: "1.2.3", Commit: "abc1234"}, Services: svc})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/company/ocr", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
