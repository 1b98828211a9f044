package config

import (
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "FAMTREE_"

// parseEnv overlays FAMTREE_SERVER_ADDR, FAMTREE_CACHE_FILE and
// FAMTREE_REQUEST_TIMEOUT, after loading a .env file when present.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	_ = godotenv.Load()

	if v, ok := lookup(envPrefix + "SERVER_ADDR"); ok {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := lookup(envPrefix + "CACHE_FILE"); ok {
		cfg.CacheFile = v
	}
	if v, ok := lookup(envPrefix + "REQUEST_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
}
