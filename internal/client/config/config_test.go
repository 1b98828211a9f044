package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.NotEmpty(t, c.CacheFile)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("", noEnv)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
}

func TestLoad_EnvOverridesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_endpoint_addr": "json:1",
		"cache_file": "/tmp/from-json.db",
		"request_timeout": "3s"
	}`), 0o600))

	cfg, err := Load(path, envOf(map[string]string{
		"FAMTREE_SERVER_ADDR":     "env:2",
		"FAMTREE_REQUEST_TIMEOUT": "not-a-duration",
	}))
	require.NoError(t, err)

	assert.Equal(t, "env:2", cfg.ServerEndpointAddr)
	assert.Equal(t, "/tmp/from-json.db", cfg.CacheFile)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoad_PartialJSONKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"request_timeout": 2000000000}`), 0o600))

	cfg, err := Load(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoad_BadFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), noEnv)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
	_, err = Load(bad, noEnv)
	assert.Error(t, err)
}
