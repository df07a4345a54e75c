// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package provider_test

import (
	"context"

	"github.com/shopkeep-dev/shopkeep/internal/provider"
)

type fakeProvider struct {
	name     string
	generate func(provider.GenerateRequest) (string, error)
	lastGen  provider.GenerateRequest
	closed   bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, req provider.GenerateRequest) (string, error) {
	f.lastGen = req
	if f.generate != nil {
		return f.generate(req)
	}
	return "ok", nil
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

type fakeEmbeddingProvider struct {
	fakeProvider
	embed    func(provider.EmbedRequest) ([][]float32, error)
	lastEmb  provider.EmbedRequest
	embedHit int
}

func (f *fakeEmbeddingProvider) Embed(_ context.Context, req provider.EmbedRequest) ([][]float32, error) {
	f.lastEmb = req
	f.embedHit++
	if f.embed != nil {
		return f.embed(req)
	}
	out := make([][]float32, len(req.Inputs))
	for i := range out {
		out[i] = make([]float32, req.Dimensions)
		out[i][0] = float32(i)
	}
	return out, nil
}
