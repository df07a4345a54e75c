// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package openai

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/shopkeep-dev/shopkeep/internal/provider"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

type Config struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible server.
	BaseURL string
	Timeout time.Duration
}

// Provider implements provider.EmbeddingProvider using Chat Completions
// and the Embeddings API.
type Provider struct {
	client openaisdk.Client
}

var _ provider.EmbeddingProvider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, shoperr.New(shoperr.CodeProviderRequestInvalid, "openai: missing api_key in config",
			shoperr.FieldProvider("openai"))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	return &Provider{client: openaisdk.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Close() error { return nil }

func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, buildChatParams(req))
	if err != nil {
		return "", shoperr.Wrapf(err, shoperr.CodeProviderUpstreamFailure, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", shoperr.New(shoperr.CodeProviderResponseInvalid, "openai: completion has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Embed(ctx context.Context, req provider.EmbedRequest) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, buildEmbeddingParams(req))
	if err != nil {
		return nil, shoperr.Wrapf(err, shoperr.CodeProviderUpstreamFailure, "openai: embeddings")
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func buildChatParams(req provider.GenerateRequest) openaisdk.ChatCompletionNewParams {
	params := openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(req.Prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Temperature))
	}
	return params
}

func buildEmbeddingParams(req provider.EmbedRequest) openaisdk.EmbeddingNewParams {
	params := openaisdk.EmbeddingNewParams{
		Model:          openaisdk.EmbeddingModel(req.Model),
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Inputs},
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a dimensions override.
	if req.Dimensions > 0 && strings.HasPrefix(req.Model, "text-embedding-3") {
		params.Dimensions = param.NewOpt(int64(req.Dimensions))
	}
	return params
}
