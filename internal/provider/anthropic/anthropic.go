// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/shopkeep-dev/shopkeep/internal/provider"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

const defaultMaxTokens = 4096

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider implements provider.Provider with the Messages API. Anthropic
// has no embedding endpoint, so it can only serve models.generate.
type Provider struct {
	client anthropicsdk.Client
}

var _ provider.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, shoperr.New(shoperr.CodeProviderRequestInvalid, "anthropic: missing api_key in config",
			shoperr.FieldProvider("anthropic"))
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

	return &Provider{client: anthropicsdk.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Close() error { return nil }

func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	msg, err := p.client.Messages.New(ctx, buildParams(req))
	if err != nil {
		return "", shoperr.Wrapf(err, shoperr.CodeProviderUpstreamFailure, "anthropic: creating message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func buildParams(req provider.GenerateRequest) anthropicsdk.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(float64(req.Temperature))
	}
	return params
}
