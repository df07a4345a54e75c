// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package provider abstracts the language model backends used to chunk
// descriptions, embed sentences and answer questions.
package provider

import (
	"context"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Provider is a language model backend that can complete prompts.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Close() error
}

// EmbeddingProvider is a Provider that can also embed text.
type EmbeddingProvider interface {
	Provider
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, error)
}

// GenerateRequest is a single non-streaming completion.
type GenerateRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// EmbedRequest asks for one vector per input, in input order.
type EmbedRequest struct {
	Model      string
	Inputs     []string
	Dimensions int
}

// Generator completes prompts with a fixed model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder embeds text with a fixed model. Every returned vector has
// Dimensions() entries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, shoperr.Errorf(shoperr.CodeProviderResponseInvalid,
			"expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// DefaultMaxTokens caps completions when the caller sets no limit.
const DefaultMaxTokens = 2048
