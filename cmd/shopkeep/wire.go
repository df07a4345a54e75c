// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopkeep-dev/shopkeep/internal/config"
	"github.com/shopkeep-dev/shopkeep/internal/guard"
	"github.com/shopkeep-dev/shopkeep/internal/knowledge"
	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	"github.com/shopkeep-dev/shopkeep/internal/ocr/tesseract"
	"github.com/shopkeep-dev/shopkeep/internal/provider"
	anthropicprov "github.com/shopkeep-dev/shopkeep/internal/provider/anthropic"
	googleprov "github.com/shopkeep-dev/shopkeep/internal/provider/google"
	ollamaprov "github.com/shopkeep-dev/shopkeep/internal/provider/ollama"
	openaiprov "github.com/shopkeep-dev/shopkeep/internal/provider/openai"
	"github.com/shopkeep-dev/shopkeep/internal/server"
	"github.com/shopkeep-dev/shopkeep/internal/store"
	_ "github.com/shopkeep-dev/shopkeep/internal/store/bolt"   // register bolt backend
	_ "github.com/shopkeep-dev/shopkeep/internal/store/qdrant" // register qdrant backend
	_ "github.com/shopkeep-dev/shopkeep/internal/store/sqlite" // register sqlite backend
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Server    *server.Server
	Knowledge *knowledge.Service
	OCR       *ocr.Service
	Providers *provider.Registry
	Index     store.SentenceIndex
	Engine    ocr.Engine
}

// WireApp creates all subsystems and wires them together. dataDir holds
// the file-based indexes.
func WireApp(ctx context.Context, cfg *config.Config, dataDir string) (*App, error) {
	reg := provider.NewRegistry()
	registerProviders(ctx, cfg, reg)

	gen, err := reg.Generator(cfg.Models.Generate)
	if err != nil {
		_ = reg.Close()
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "models.generate %s", cfg.Models.Generate)
	}
	emb, err := reg.Embedder(cfg.Models.Embed, cfg.Models.EmbedDimensions)
	if err != nil {
		_ = reg.Close()
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "models.embed %s", cfg.Models.Embed)
	}

	idx, err := store.New(store.Config{
		Backend:      cfg.Storage.Backend,
		Collection:   cfg.Storage.Collection,
		Dimensions:   cfg.Models.EmbedDimensions,
		DataDir:      dataDir,
		QdrantURL:    cfg.Storage.Qdrant.URL,
		QdrantAPIKey: cfg.Storage.Qdrant.APIKey,
		Timeout:      cfg.Models.Timeout,
	})
	if err != nil {
		_ = reg.Close()
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "opening %s sentence index", cfg.Storage.Backend)
	}

	engine, err := newOCREngine(cfg.OCR.Languages)
	if err != nil {
		_ = idx.Close()
		_ = reg.Close()
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "creating ocr engine")
	}

	g, err := guard.New(guard.Config{
		InputMode:  guard.Mode(cfg.Guard.InputMode),
		OutputMode: guard.Mode(cfg.Guard.OutputMode),
	})
	if err != nil {
		_ = engine.Close()
		_ = idx.Close()
		_ = reg.Close()
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "creating content guard")
	}

	kn := knowledge.NewService(gen, emb, idx, cfg.Retrieval.TopK, knowledge.WithGuard(g))
	ocrSvc := ocr.NewService(engine, ocr.WithMaxUploadBytes(cfg.OCR.MaxUploadBytes))

	services, err := server.NewServices(kn, ocrSvc, reg)
	if err != nil {
		_ = engine.Close()
		_ = idx.Close()
		_ = reg.Close()
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimitRPS,
			Burst:             cfg.Networking.RateLimitBurst,
		},
		Build:    buildInfo(),
		Services: services,
	})
	if err != nil {
		_ = engine.Close()
		_ = idx.Close()
		_ = reg.Close()
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "creating server")
	}

	slog.Info("shopkeep wired",
		"generate", cfg.Models.Generate, "embed", cfg.Models.Embed,
		"backend", cfg.Storage.Backend, "collection", cfg.Storage.Collection,
		"top_k", kn.TopK(), "ocr", tesseract.Available,
		"guard_input", cfg.Guard.InputMode, "guard_output", cfg.Guard.OutputMode)

	return &App{
		Server:    srv,
		Knowledge: kn,
		OCR:       ocrSvc,
		Providers: reg,
		Index:     idx,
		Engine:    engine,
	}, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	type closer interface{ Close() error }
	closers := []closer{a.Server, a.Engine, a.Index, a.Providers}

	var errs []error
	for _, c := range closers {
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// newOCREngine is a variable so tests can avoid native OCR libraries.
var newOCREngine = func(languages []string) (ocr.Engine, error) {
	if !tesseract.Available {
		slog.Warn("built without tesseract; POST /company/ocr will fail until rebuilt with -tags tesseract")
	}
	return tesseract.New(languages)
}

// providerFactory builds a provider.Provider from a ProviderConfig.
type providerFactory func(ctx context.Context, pc config.ProviderConfig, timeout time.Duration) (provider.Provider, error)

// builtinProviderFactories maps provider names to their constructors.
// Declared as a variable so tests can inject failing factories.
var builtinProviderFactories = map[string]providerFactory{
	"ollama": func(_ context.Context, pc config.ProviderConfig, timeout time.Duration) (provider.Provider, error) {
		return ollamaprov.New(ollamaprov.Config{Endpoint: pc.Endpoint, Timeout: timeout}), nil
	},
	"openai": func(_ context.Context, pc config.ProviderConfig, timeout time.Duration) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint, Timeout: timeout})
	},
	"google": func(ctx context.Context, pc config.ProviderConfig, timeout time.Duration) (provider.Provider, error) {
		return googleprov.New(ctx, googleprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint, Timeout: timeout})
	},
	"anthropic": func(_ context.Context, pc config.ProviderConfig, timeout time.Duration) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint, Timeout: timeout})
	},
}

// keylessProviders run locally and need no API key.
var keylessProviders = map[string]bool{"ollama": true}

// registerProviders registers every built-in provider that has the
// credentials it needs. Missing keys and construction failures are logged
// and skipped; WireApp reports them if a configured model needs them.
func registerProviders(ctx context.Context, cfg *config.Config, reg *provider.Registry) {
	for _, name := range config.KnownProviders {
		pc := cfg.Provider(name)
		if pc.APIKey == "" && !keylessProviders[name] {
			slog.Debug("skipping provider without api key", "provider", name)
			continue
		}
		factory, ok := builtinProviderFactories[name]
		if !ok {
			continue
		}
		p, err := factory(ctx, pc, cfg.Models.Timeout)
		if err != nil {
			slog.Warn("failed to create provider", "provider", name, "error", err)
			continue
		}
		reg.Register(p)
		slog.Debug("registered provider", "provider", name)
	}
}
