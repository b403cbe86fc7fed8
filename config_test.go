package recaptcha

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSecrets map[string]string

func (m mapSecrets) Name() string { return "map" }

func (m mapSecrets) Get(_ context.Context, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recaptcha.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
policy_file: policy.yaml
v2:
  site_key: site-v2
  secret_key: secret-v2
  theme: dark
v3:
  site_key: site-v3
  secret_key_ref: V3_SECRET
  api_url: https://example.com/recaptcha/api
`)

	cfg, err := LoadConfig(context.Background(), path, WithSecretSource(mapSecrets{"V3_SECRET": "resolved"}))
	require.NoError(t, err)

	assert.Equal(t, "policy.yaml", cfg.PolicyFile)
	require.NotNil(t, cfg.V2)
	assert.True(t, cfg.V2.Enabled)
	assert.Equal(t, "secret-v2", cfg.V2.SecretKey)
	assert.Equal(t, ThemeDark, cfg.V2.Theme)
	assert.Equal(t, DefaultAPIURL, cfg.V2.APIURL)
	assert.Equal(t, DefaultLibURL, cfg.V2.LibURL)

	require.NotNil(t, cfg.V3)
	assert.Equal(t, "resolved", cfg.V3.SecretKey)
	assert.Equal(t, "https://example.com/recaptcha/api/", cfg.V3.APIURL)
	assert.InDelta(t, DefaultPassingScore, cfg.V3.DefaultPassingScore, 1e-9)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
v3:
  site_key: site-v3
  secret_key: from-file
  default_passing_score: 0.4
`)
	t.Setenv("RECAPTCHA__V3__SECRET_KEY", "from-env")
	t.Setenv("RECAPTCHA__V3__ENABLED", "false")

	cfg, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)

	assert.Nil(t, cfg.V2)
	require.NotNil(t, cfg.V3)
	assert.Equal(t, "from-env", cfg.V3.SecretKey)
	assert.False(t, cfg.V3.Enabled)
	assert.InDelta(t, 0.4, cfg.V3.DefaultPassingScore, 1e-9)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing keys", func(t *testing.T) {
		path := writeConfig(t, "v2:\n  site_key: site\n")
		_, err := LoadConfig(context.Background(), path)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "secret_key", cfgErr.Field)
	})

	t.Run("unresolvable secret", func(t *testing.T) {
		path := writeConfig(t, "v3:\n  site_key: site\n  secret_key_ref: NOPE\n")
		_, err := LoadConfig(context.Background(), path, WithSecretSource(mapSecrets{}))
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "v3.secret_key_ref", cfgErr.Field)
	})

	t.Run("unknown secret provider", func(t *testing.T) {
		path := writeConfig(t, "secret_provider: consul\nv3:\n  site_key: site\n  secret_key_ref: KEY\n")
		_, err := LoadConfig(context.Background(), path)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "secret_provider", cfgErr.Field)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "error loading config file")
	})
}
