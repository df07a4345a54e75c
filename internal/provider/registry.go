// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package provider

import (
	"context"
	"sort"
	"strings"
	"sync"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"github.com/shopkeep-dev/shopkeep/pkg/health"
)

// Registry holds the configured providers and binds "provider/model"
// references to Generators and Embedders.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	health    map[string]*HealthTracker
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		health:    make(map[string]*HealthTracker),
	}
}

// Register adds p under p.Name(), replacing any provider of the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.health[p.Name()] = NewHealthTracker(DefaultHealthCooldown)
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, shoperr.New(shoperr.CodeProviderNotFound, "provider not found: "+name,
			shoperr.FieldProvider(name))
	}
	return p, nil
}

// ParseModelRef splits "provider/model" on the first slash.
func ParseModelRef(ref string) (providerName, model string, err error) {
	providerName, model, ok := strings.Cut(ref, "/")
	if !ok || providerName == "" || model == "" {
		return "", "", shoperr.Errorf(shoperr.CodeProviderInvalidModelRef,
			"model reference %q must use provider/model format", ref)
	}
	return providerName, model, nil
}

// Generator binds ref to a Generator.
func (r *Registry) Generator(ref string) (Generator, error) {
	name, model, err := ParseModelRef(ref)
	if err != nil {
		return nil, err
	}
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return &boundGenerator{p: p, model: model, health: r.tracker(name)}, nil
}

// Embedder binds ref to an Embedder producing vectors of dims entries.
func (r *Registry) Embedder(ref string, dims int) (Embedder, error) {
	name, model, err := ParseModelRef(ref)
	if err != nil {
		return nil, err
	}
	if dims <= 0 {
		return nil, shoperr.Errorf(shoperr.CodeProviderRequestInvalid, "embedding dimensions must be positive, got %d", dims)
	}
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	ep, ok := p.(EmbeddingProvider)
	if !ok {
		return nil, shoperr.New(shoperr.CodeProviderRequestInvalid,
			"provider "+name+" does not support embeddings", shoperr.FieldProvider(name))
	}
	return &boundEmbedder{p: ep, model: model, dims: dims, health: r.tracker(name)}, nil
}

// Status reports health for every registered provider, sorted by name.
func (r *Registry) Status() []health.ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]health.ProviderStatus, 0, len(r.health))
	for name, h := range r.health {
		out = append(out, health.ProviderStatus{Name: name, Metrics: h.Metrics()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return shoperr.Join(errs...)
	}
	return nil
}

func (r *Registry) tracker(name string) *HealthTracker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.health[name]
}

type boundGenerator struct {
	p      Provider
	model  string
	health *HealthTracker
}

func (g *boundGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.p.Generate(ctx, GenerateRequest{Model: g.model, Prompt: prompt, MaxTokens: DefaultMaxTokens})
	g.health.Record(err)
	if err != nil {
		return "", shoperr.With(err, shoperr.FieldProvider(g.p.Name()), shoperr.Field("model", g.model))
	}
	return out, nil
}

type boundEmbedder struct {
	p      EmbeddingProvider
	model  string
	dims   int
	health *HealthTracker
}

func (e *boundEmbedder) Dimensions() int { return e.dims }

func (e *boundEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := e.p.Embed(ctx, EmbedRequest{Model: e.model, Inputs: texts, Dimensions: e.dims})
	if err == nil {
		err = checkShape(vecs, len(texts), e.dims)
	}
	e.health.Record(err)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldProvider(e.p.Name()), shoperr.Field("model", e.model))
	}
	return vecs, nil
}

func checkShape(vecs [][]float32, n, dims int) error {
	if len(vecs) != n {
		return shoperr.Errorf(shoperr.CodeProviderResponseInvalid, "expected %d embeddings, got %d", n, len(vecs))
	}
	for i, v := range vecs {
		if len(v) != dims {
			return shoperr.Errorf(shoperr.CodeProviderResponseInvalid,
				"embedding %d has %d dimensions, index expects %d", i, len(v), dims)
		}
	}
	return nil
}
