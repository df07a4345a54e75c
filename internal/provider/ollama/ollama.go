// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package ollama talks to a local Ollama server over its REST API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopkeep-dev/shopkeep/internal/provider"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

const (
	DefaultEndpoint = "http://localhost:11434"
	DefaultTimeout  = 120 * time.Second

	// maxErrorBody bounds how much of an error response is quoted back.
	maxErrorBody = 4 << 10
)

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Provider implements provider.EmbeddingProvider against /api/generate
// and /api/embed.
type Provider struct {
	client   *http.Client
	endpoint string
}

var _ provider.EmbeddingProvider = (*Provider)(nil)

func New(cfg Config) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Provider{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Close() error { return nil }

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	body := generateRequest{Model: req.Model, Prompt: req.Prompt}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.Options = &options{NumPredict: req.MaxTokens, Temperature: req.Temperature}
	}

	var resp generateResponse
	if err := p.post(ctx, "/api/generate", body, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (p *Provider) Embed(ctx context.Context, req provider.EmbedRequest) ([][]float32, error) {
	var resp embedResponse
	if err := p.post(ctx, "/api/embed", embedRequest{Model: req.Model, Input: req.Inputs}, &resp); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return shoperr.Wrapf(err, shoperr.CodeProviderRequestInvalid, "ollama: encoding %s request", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return shoperr.Wrapf(err, shoperr.CodeProviderRequestInvalid, "ollama: building %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return shoperr.Wrapf(err, shoperr.CodeProviderUpstreamFailure, "ollama: calling %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return shoperr.Errorf(shoperr.CodeProviderUpstreamFailure,
			"ollama: %s returned HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return shoperr.Wrapf(err, shoperr.CodeProviderResponseInvalid, "ollama: decoding %s response", path)
	}
	return nil
}
