// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package google

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/shopkeep-dev/shopkeep/internal/provider"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

type Config struct {
	APIKey string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
	Timeout time.Duration
}

// Provider implements provider.EmbeddingProvider using the Gemini API.
type Provider struct {
	client *genai.Client
}

var _ provider.EmbeddingProvider = (*Provider)(nil)

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, shoperr.New(shoperr.CodeProviderRequestInvalid, "google: missing api_key in config",
			shoperr.FieldProvider("google"))
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, shoperr.Wrapf(err, shoperr.CodeProviderUpstreamFailure, "google: creating client")
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Close() error { return nil }

func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), buildGenerateConfig(req))
	if err != nil {
		return "", shoperr.Wrapf(err, shoperr.CodeProviderUpstreamFailure, "google: generating content")
	}
	return resp.Text(), nil
}

func (p *Provider) Embed(ctx context.Context, req provider.EmbedRequest) ([][]float32, error) {
	resp, err := p.client.Models.EmbedContent(ctx, req.Model, buildContents(req.Inputs), buildEmbedConfig(req))
	if err != nil {
		return nil, shoperr.Wrapf(err, shoperr.CodeProviderUpstreamFailure, "google: embedding content")
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			return nil, shoperr.New(shoperr.CodeProviderResponseInvalid, "google: empty embedding in response")
		}
		out = append(out, e.Values)
	}
	return out, nil
}

func buildGenerateConfig(req provider.GenerateRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	return cfg
}

func buildEmbedConfig(req provider.EmbedRequest) *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{}
	if req.Dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(req.Dimensions))
	}
	return cfg
}

// buildContents sends one Content per input so the response carries one
// embedding per input.
func buildContents(inputs []string) []*genai.Content {
	contents := make([]*genai.Content, len(inputs))
	for i, text := range inputs {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	return contents
}
