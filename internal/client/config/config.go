package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the famtree CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - CacheFile: local SQLite file keeping the signed-in session.
//   - RequestTimeout: deadline applied to every unary call.
type Config struct {
	ServerEndpointAddr string
	CacheFile          string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.CacheFile = defaultCacheFile()
	c.RequestTimeout = 10 * time.Second
}

func defaultCacheFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".famtree.db"
	}
	return filepath.Join(home, ".famtree", "session.db")
}

// Load constructs a Config from defaults, the JSON file at jsonPath (if
// any) and the environment. Later sources take precedence; command-line
// flags are applied on top by the CLI.
func Load(jsonPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, jsonPath); err != nil {
		return nil, err
	}
	parseEnv(cfg, lookup)
	return cfg, nil
}
