// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package secrets_test

import (
	"testing"

	"github.com/shopkeep-dev/shopkeep/internal/secrets"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://shopkeep/openai", "shopkeep", "openai", false},
		{"slashes in key", "keyring://shopkeep/qdrant/prod", "shopkeep", "qdrant/prod", false},
		{"other scheme", "vault://secret/key", "", "", true},
		{"missing key", "keyring://shopkeep/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"bare scheme", "keyring://", "", "", true},
		{"no slash", "keyring://shopkeep", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, shoperr.HasCode(err, shoperr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	uri := secrets.URI(secrets.DefaultService, "google")
	assert.Equal(t, "keyring://shopkeep/google", uri)
	assert.True(t, secrets.IsKeyringURI(uri))
	assert.False(t, secrets.IsKeyringURI("sk-abc"))
}

func TestResolve(t *testing.T) {
	s := secrets.NewMemoryStore()
	require.NoError(t, s.Set("shopkeep", "openai", "sk-resolved"))

	val, err := secrets.Resolve(s, "keyring://shopkeep/openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-resolved", val)

	val, err = secrets.Resolve(s, "plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", val)

	_, err = secrets.Resolve(s, "keyring://shopkeep/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving keyring URI")
}

func TestResolveViperSecrets(t *testing.T) {
	s := secrets.NewMemoryStore()
	require.NoError(t, s.Set("shopkeep", "openai", "sk-oai"))
	require.NoError(t, s.Set("shopkeep", "qdrant", "qd-key"))

	v := viper.New()
	v.Set("providers.openai.api_key", "keyring://shopkeep/openai")
	v.Set("storage.qdrant.api_key", "keyring://shopkeep/qdrant")
	v.Set("networking.listen", "127.0.0.1:8000")

	require.NoError(t, secrets.ResolveViperSecrets(v, s))
	assert.Equal(t, "sk-oai", v.GetString("providers.openai.api_key"))
	assert.Equal(t, "qd-key", v.GetString("storage.qdrant.api_key"))
	assert.Equal(t, "127.0.0.1:8000", v.GetString("networking.listen"))
}

func TestResolveViperSecrets_ReportsUnresolvedKeys(t *testing.T) {
	v := viper.New()
	v.Set("providers.google.api_key", "keyring://shopkeep/absent")

	err := secrets.ResolveViperSecrets(v, secrets.NewMemoryStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.google.api_key")
	assert.Equal(t, "keyring://shopkeep/absent", v.GetString("providers.google.api_key"))
}
