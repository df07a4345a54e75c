// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shopkeep-dev/shopkeep/internal/guard"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Config is the top-level Shopkeep configuration.
type Config struct {
	Networking NetworkingConfig          `mapstructure:"networking" yaml:"networking"`
	Providers  map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Models     ModelsConfig              `mapstructure:"models" yaml:"models"`
	Storage    StorageConfig             `mapstructure:"storage" yaml:"storage"`
	Retrieval  RetrievalConfig           `mapstructure:"retrieval" yaml:"retrieval"`
	OCR        OCRConfig                 `mapstructure:"ocr" yaml:"ocr"`
	Guard      GuardConfig               `mapstructure:"guard" yaml:"guard"`
}

// NetworkingConfig controls how the HTTP API listens for connections.
type NetworkingConfig struct {
	Listen         string   `mapstructure:"listen" yaml:"listen"`
	CORSOrigins    []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// ProviderConfig holds credentials and endpoint for a model provider.
// APIKey may be a keyring://service/key URI.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// ModelsConfig selects the generation and embedding models as
// "provider/model" references.
type ModelsConfig struct {
	Generate        string        `mapstructure:"generate" yaml:"generate"`
	Embed           string        `mapstructure:"embed" yaml:"embed"`
	EmbedDimensions int           `mapstructure:"embed_dimensions" yaml:"embed_dimensions"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// StorageConfig selects the sentence index backend.
type StorageConfig struct {
	Backend    string       `mapstructure:"backend" yaml:"backend"`
	Collection string       `mapstructure:"collection" yaml:"collection"`
	Qdrant     QdrantConfig `mapstructure:"qdrant" yaml:"qdrant"`
}

// QdrantConfig holds connection details for the qdrant backend.
type QdrantConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// RetrievalConfig controls question answering.
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k" yaml:"top_k"`
}

// OCRConfig controls certificate uploads and the OCR engine.
type OCRConfig struct {
	Languages      []string `mapstructure:"languages" yaml:"languages"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// GuardConfig selects how prompt injection in caller text and credentials
// in model output are handled: block, flag or redact.
type GuardConfig struct {
	InputMode  string `mapstructure:"input_mode" yaml:"input_mode"`
	OutputMode string `mapstructure:"output_mode" yaml:"output_mode"`
}

// KnownProviders lists the provider names the gateway can construct.
var KnownProviders = []string{"ollama", "openai", "google", "anthropic"}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:8000")
	v.SetDefault("networking.rate_limit_rps", 0)
	v.SetDefault("networking.rate_limit_burst", 0)
	for _, name := range KnownProviders {
		v.SetDefault("providers."+name+".api_key", "")
		v.SetDefault("providers."+name+".endpoint", "")
	}
	v.SetDefault("providers.ollama.endpoint", "http://localhost:11434")
	v.SetDefault("models.generate", "ollama/gemma3")
	v.SetDefault("models.embed", "ollama/nomic-embed-text")
	v.SetDefault("models.embed_dimensions", 768)
	v.SetDefault("models.timeout", 120*time.Second)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.collection", "store_info")
	v.SetDefault("storage.qdrant.url", "http://localhost:6333")
	v.SetDefault("storage.qdrant.api_key", "")
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("ocr.languages", []string{"kor", "eng"})
	v.SetDefault("ocr.max_upload_bytes", 10*1024*1024)
	v.SetDefault("guard.input_mode", string(guard.ModeFlag))
	v.SetDefault("guard.output_mode", string(guard.ModeRedact))
}

// SetupEnv binds SHOPKEEP_* environment variables to config keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("SHOPKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// PlaintextSecretKeys lists the api_key settings that the loaded config
// file holds in the clear rather than as keyring:// references. Call it
// before secrets are resolved.
func PlaintextSecretKeys(v *viper.Viper) []string {
	var keys []string
	for _, key := range v.AllKeys() {
		if !strings.HasSuffix(key, "api_key") || !v.InConfig(key) {
			continue
		}
		if val := v.GetString(key); val != "" && !isKeyringRef(val) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SHOPKEEP_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, shoperr.Errorf(shoperr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, shoperr.Errorf(shoperr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, shoperr.Errorf(shoperr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It collects every issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateOCR()...)
	errs = append(errs, c.validateGuard()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("config: networking.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Networking.Listen)
		if err != nil {
			errs = append(errs, invalid("config: networking.listen must be a valid host:port address, got %q: %w", c.Networking.Listen, err))
		} else if port, err := strconv.Atoi(portStr); err != nil {
			errs = append(errs, invalid("config: networking.listen port must be a number, got %q", portStr))
		} else if port < 1 || port > 65535 {
			errs = append(errs, invalid("config: networking.listen port must be between 1 and 65535, got %d", port))
		}
	}

	if c.Networking.RateLimitRPS < 0 {
		errs = append(errs, invalid("config: networking.rate_limit_rps must not be negative, got %g", c.Networking.RateLimitRPS))
	}
	if c.Networking.RateLimitRPS > 0 && c.Networking.RateLimitBurst <= 0 {
		errs = append(errs, invalid("config: networking.rate_limit_burst must be positive when rate_limit_rps is set, got %d", c.Networking.RateLimitBurst))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	for key, ref := range map[string]string{"models.generate": c.Models.Generate, "models.embed": c.Models.Embed} {
		name, model, ok := strings.Cut(ref, "/")
		switch {
		case ref == "":
			errs = append(errs, invalid("config: %s must not be empty", key))
		case !ok || name == "" || model == "":
			errs = append(errs, invalid("config: %s must be in \"provider/model\" format, got %q", key, ref))
		case !isKnownProvider(name):
			errs = append(errs, invalid("config: %s references unknown provider %q (known: %s)", key, name, strings.Join(KnownProviders, ", ")))
		}
	}

	if name, _, _ := strings.Cut(c.Models.Embed, "/"); name == "anthropic" {
		errs = append(errs, invalid("config: models.embed cannot use provider anthropic, it has no embedding API"))
	}

	if c.Models.EmbedDimensions <= 0 {
		errs = append(errs, invalid("config: models.embed_dimensions must be greater than 0, got %d", c.Models.EmbedDimensions))
	}
	if c.Models.Timeout < 0 {
		errs = append(errs, invalid("config: models.timeout must not be negative, got %s", c.Models.Timeout))
	}

	for name, p := range c.Providers {
		if !isKnownProvider(name) {
			errs = append(errs, invalid("config: providers.%s is not a known provider (known: %s)", name, strings.Join(KnownProviders, ", ")))
			continue
		}
		if p.Endpoint != "" {
			if _, err := url.ParseRequestURI(p.Endpoint); err != nil {
				errs = append(errs, invalid("config: providers.%s.endpoint must be a URL, got %q", name, p.Endpoint))
			}
		}
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	switch c.Storage.Backend {
	case "sqlite", "bolt":
	case "qdrant":
		if _, err := url.ParseRequestURI(c.Storage.Qdrant.URL); err != nil {
			errs = append(errs, invalid("config: storage.qdrant.url must be a URL, got %q", c.Storage.Qdrant.URL))
		}
	default:
		errs = append(errs, invalid("config: storage.backend must be one of [sqlite, bolt, qdrant], got %q", c.Storage.Backend))
	}

	if c.Storage.Collection == "" {
		errs = append(errs, invalid("config: storage.collection must not be empty"))
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	if c.Retrieval.TopK <= 0 {
		return []error{invalid("config: retrieval.top_k must be greater than 0, got %d", c.Retrieval.TopK)}
	}
	return nil
}

func (c *Config) validateOCR() []error {
	var errs []error
	if len(c.OCR.Languages) == 0 {
		errs = append(errs, invalid("config: ocr.languages must not be empty"))
	}
	if c.OCR.MaxUploadBytes <= 0 {
		errs = append(errs, invalid("config: ocr.max_upload_bytes must be greater than 0, got %d", c.OCR.MaxUploadBytes))
	}
	return errs
}

func (c *Config) validateGuard() []error {
	var errs []error
	for key, mode := range map[string]string{"guard.input_mode": c.Guard.InputMode, "guard.output_mode": c.Guard.OutputMode} {
		if _, err := guard.ParseMode(mode); err != nil {
			errs = append(errs, invalid("config: %s must be one of [block, flag, redact], got %q", key, mode))
		}
	}
	return errs
}

// Provider returns the configuration for the named provider, or the zero
// value when none is configured.
func (c *Config) Provider(name string) ProviderConfig {
	if c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[name]
}

func isKnownProvider(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return shoperr.Errorf(shoperr.CodeConfigValidateInvalidValue, format, args...)
}
