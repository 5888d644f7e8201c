package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  port: \"9090\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 60, cfg.Sources.FreshnessSeconds)
	assert.Equal(t, 2, cfg.Sources.MaxRetries)
	assert.Equal(t, "alchemy", cfg.Tokens.Provider)
	assert.Equal(t, []string{"eth:", "oeth:"}, cfg.Query.SchemePrefixes)
	assert.Equal(t, []string{".eth", ".xyz"}, cfg.Query.NameSuffixes)
	assert.Equal(t, DefaultSpamPatterns, cfg.Aggregation.SpamPatterns)
	assert.Equal(t, 5, cfg.Aggregation.DisplayLimit)
	assert.Equal(t, "https://api.opensea.io/api/v2", cfg.OpenSea.BaseURL)
	assert.Equal(t, []string{"ethereum", "optimism", "arbitrum", "base", "polygon"}, cfg.Networks.Tracked)
	assert.Equal(t, "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e", cfg.ENS.RegistryAddress)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	data := []byte(`
tokens:
  provider: Moralis
sources:
  freshnessSeconds: 30
  maxRetries: -1
  overrides:
    nfts:
      timeoutMillis: 2500
aggregation:
  spamPatterns: ["scam"]
  displayLimit: 3
efp:
  baseURL: https://efp.example/api/v1/
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "moralis", cfg.Tokens.Provider)
	assert.Equal(t, 30, cfg.Sources.FreshnessSeconds)
	assert.Equal(t, -1, cfg.Sources.MaxRetries)
	assert.Equal(t, int64(2500), cfg.Sources.Overrides["nfts"].TimeoutMillis)
	assert.Equal(t, []string{"scam"}, cfg.Aggregation.SpamPatterns)
	assert.Equal(t, 3, cfg.Aggregation.DisplayLimit)
	assert.Equal(t, "https://efp.example/api/v1", cfg.EFP.BaseURL)
}

func TestParseRejectsUnknownProvider(t *testing.T) {
	_, err := Parse([]byte("tokens:\n  provider: covalent\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "covalent")
}

func TestParseRejectsSuffixWithoutDot(t *testing.T) {
	_, err := Parse([]byte("query:\n  nameSuffixes: [\"eth\"]\n"))
	require.Error(t, err)
}

func TestEnvironmentOverridesAPIKeys(t *testing.T) {
	t.Setenv("ALCHEMY_API_KEY", "alchemy-from-env")
	t.Setenv("OPENSEA_API_KEY", "opensea-from-env")

	cfg, err := Parse([]byte("alchemy:\n  apiKey: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "alchemy-from-env", cfg.Alchemy.APIKey)
	assert.Equal(t, "opensea-from-env", cfg.OpenSea.APIKey)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
}
