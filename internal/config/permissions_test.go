// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

//go:build !windows

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs swaps the default slog handler for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestWarnInsecurePermissions(t *testing.T) {
	secrets := []string{"providers.openai.api_key"}
	tests := []struct {
		name       string
		perm       os.FileMode
		keys       []string
		expectWarn bool
	}{
		{name: "owner only 0600", perm: 0o600, keys: secrets},
		{name: "owner read only 0400", perm: 0o400, keys: secrets},
		{name: "group readable 0640", perm: 0o640, keys: secrets, expectWarn: true},
		{name: "other readable 0604", perm: 0o604, keys: secrets, expectWarn: true},
		{name: "world readable without plaintext keys", perm: 0o644},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "shopkeep.yaml")
			require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 3\n"), 0o600))
			require.NoError(t, os.Chmod(path, tt.perm))

			buf := captureLogs(t)
			WarnInsecurePermissions(path, tt.keys)

			if tt.expectWarn {
				assert.Contains(t, buf.String(), "level=WARN")
				assert.Contains(t, buf.String(), path)
				assert.Contains(t, buf.String(), "providers.openai.api_key")
			} else {
				assert.NotContains(t, buf.String(), "level=WARN")
			}
		})
	}
}

func TestWarnInsecurePermissions_EmptyPath(t *testing.T) {
	buf := captureLogs(t)
	WarnInsecurePermissions("", []string{"providers.openai.api_key"})
	assert.Empty(t, buf.String())
}

func TestWarnInsecurePermissions_MissingFile(t *testing.T) {
	buf := captureLogs(t)
	WarnInsecurePermissions("/nonexistent/path/shopkeep.yaml", []string{"providers.openai.api_key"})
	assert.Contains(t, buf.String(), "could not stat")
	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestPlaintextSecretKeys(t *testing.T) {
	t.Setenv("SHOPKEEP_PROVIDERS_GOOGLE_API_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "shopkeep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  openai:
    api_key: "sk-plain"
  anthropic:
    api_key: "keyring://shopkeep/anthropic"
storage:
  qdrant:
    api_key: "qd-plain"
`), 0o600))

	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	assert.Equal(t, []string{"providers.openai.api_key", "storage.qdrant.api_key"}, PlaintextSecretKeys(v))
}
