// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package server_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopkeep-dev/shopkeep/internal/knowledge"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStore(t *testing.T) {
	var gotStore, gotDesc string
	k := &mockKnowledge{register: func(storeID, description string) (*knowledge.Registration, error) {
		gotStore, gotDesc = storeID, description
		return &knowledge.Registration{
			StoreID:   storeID,
			Sentences: []string{"first", "second"},
			Message:   "store registered successfully (2 sentences)",
		}, nil
	}}
	srv := newTestServer(t, k, nil)

	w := doJSON(t, srv, http.MethodPost, "/store/register", map[string]string{
		"store_id":    "cafe-1",
		"description": "a cafe",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cafe-1", gotStore)
	assert.Equal(t, "a cafe", gotDesc)

	body := decode(t, w)
	assert.Equal(t, "cafe-1", body["store_id"])
	assert.Equal(t, []any{"first", "second"}, body["parsed_sentences"])
	assert.Equal(t, "store registered successfully (2 sentences)", body["message"])
}

func TestRegisterStore_ErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		detail     string
		hideDetail string
	}{
		{
			name:   "empty parse",
			err:    shoperr.New(shoperr.CodeKnowledgeEmptyParse, "parsing produced no sentences"),
			status: http.StatusBadRequest,
			detail: "parsing produced no sentences",
		},
		{
			name:   "model down",
			err:    shoperr.New(shoperr.CodeProviderUpstreamFailure, "ollama unreachable"),
			status: http.StatusBadGateway,
			detail: "ollama unreachable",
		},
		{
			name:       "database",
			err:        shoperr.New(shoperr.CodeStoreDatabaseFailure, "disk /var/lib/secret full"),
			status:     http.StatusInternalServerError,
			detail:     "registering store failed",
			hideDetail: "/var/lib/secret",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := &mockKnowledge{register: func(string, string) (*knowledge.Registration, error) { return nil, tt.err }}
			srv := newTestServer(t, k, nil)

			w := doJSON(t, srv, http.MethodPost, "/store/register", map[string]string{"store_id": "s", "description": "d"})
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.detail)
			if tt.hideDetail != "" {
				assert.NotContains(t, w.Body.String(), tt.hideDetail)
			}
		})
	}
}

func TestRegisterStore_MissingFields(t *testing.T) {
	called := false
	k := &mockKnowledge{register: func(string, string) (*knowledge.Registration, error) {
		called = true
		return nil, nil
	}}
	srv := newTestServer(t, k, nil)

	w := doJSON(t, srv, http.MethodPost, "/store/register", map[string]string{"store_id": "s"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, called)
}

func TestAskStore(t *testing.T) {
	k := &mockKnowledge{ask: func(storeID, question string) (*knowledge.Answer, error) {
		return &knowledge.Answer{StoreID: storeID, Question: question, Answer: "9시에 엽니다"}, nil
	}}
	srv := newTestServer(t, k, nil)

	w := doJSON(t, srv, http.MethodPost, "/store/question", map[string]string{
		"store_id": "cafe-1",
		"question": "몇 시에 여나요?",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "cafe-1", body["store_id"])
	assert.Equal(t, "몇 시에 여나요?", body["question"])
	assert.Equal(t, "9시에 엽니다", body["answer"])
}

func TestAskStore_NotFound(t *testing.T) {
	k := &mockKnowledge{ask: func(storeID, _ string) (*knowledge.Answer, error) {
		return nil, shoperr.New(shoperr.CodeKnowledgeStoreNotFound, "no information for store \""+storeID+"\"")
	}}
	srv := newTestServer(t, k, nil)

	w := doJSON(t, srv, http.MethodPost, "/store/question", map[string]string{"store_id": "ghost", "question": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no information for store")
}

func TestForgetStore(t *testing.T) {
	var got string
	k := &mockKnowledge{forget: func(storeID string) (int, error) {
		got = storeID
		return 4, nil
	}}
	srv := newTestServer(t, k, nil)

	w := doJSON(t, srv, http.MethodDelete, "/store/cafe-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cafe-1", got)
	body := decode(t, w)
	assert.Equal(t, "cafe-1", body["store_id"])
	assert.EqualValues(t, 4, body["deleted"])
}

func TestCertificateUpload(t *testing.T) {
	engine := &mockEngine{lines: []string{"상호(법인명) ABC상사", "123-45-67890", "성명(대표자) 홍길동", "개업일 2020년 3월 5일"}}
	srv := newTestServer(t, nil, engine)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, multipartRequest(t, "file", "cert.png", "image/png", pngImage(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"company_name": "ABC상사",
		"business_number": "1234567890",
		"representative_name": "홍길동",
		"opening_date": "20200305",
		"parsed": true
	}`, w.Body.String())
}

func TestCertificateUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		engine *mockEngine
		status int
		detail string
	}{
		{
			name:   "missing file field",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "image", "a.png", "image/png", pngImage(t)) },
			status: http.StatusBadRequest,
			detail: "\\\"file\\\" is required",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/company/ocr", bytes.NewBufferString("{}"))
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "unsupported type",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "file", "a.pdf", "application/pdf", []byte("%PDF")) },
			status: http.StatusBadRequest,
			detail: "unsupported file type",
		},
		{
			name: "file too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "big.png", "image/png", make([]byte, 64*1024+1))
			},
			status: http.StatusBadRequest,
			detail: "size limit",
		},
		{
			name:   "engine failure",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "file", "a.png", "image/png", pngImage(t)) },
			engine: &mockEngine{err: shoperr.New(shoperr.CodeOCREngineFailure, "tesseract crashed")},
			status: http.StatusBadGateway,
			detail: "tesseract crashed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var engine *mockEngine
			if tt.engine != nil {
				engine = tt.engine
			} else {
				engine = &mockEngine{}
			}
			srv := newTestServer(t, nil, engine)

			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, tt.req(t))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
			assert.Contains(t, w.Body.String(), tt.detail)
		})
	}
}
