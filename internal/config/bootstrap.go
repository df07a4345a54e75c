// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed shopkeep.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/shopkeep/shopkeep.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", shoperr.Errorf(shoperr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "shopkeep", "shopkeep.yaml"), nil
}

// BootstrapConfig writes the default commented config to the default path
// if no file exists there yet. It returns the path written, or "" when the
// file already existed or could not be written (logged, non-fatal).
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return bootstrapAt(cfgPath)
}

func bootstrapAt(cfgPath string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}

// Render marshals the effective configuration as YAML with provider API
// keys redacted.
func Render(cfg *Config) ([]byte, error) {
	redacted := *cfg
	redacted.Providers = make(map[string]ProviderConfig, len(cfg.Providers))
	for name, p := range cfg.Providers {
		if p.APIKey != "" && !isKeyringRef(p.APIKey) {
			p.APIKey = "<redacted>"
		}
		redacted.Providers[name] = p
	}
	if redacted.Storage.Qdrant.APIKey != "" && !isKeyringRef(redacted.Storage.Qdrant.APIKey) {
		redacted.Storage.Qdrant.APIKey = "<redacted>"
	}

	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, shoperr.Errorf(shoperr.CodeConfigParseInvalidFormat, "rendering config: %w", err)
	}
	return out, nil
}

func isKeyringRef(v string) bool {
	return strings.HasPrefix(v, "keyring://")
}
