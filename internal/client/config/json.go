package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/famtree/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept "3s" style strings or integer nanoseconds. Absent fields keep the
// current value.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	CacheFile          *string         `json:"cache_file"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with the file at path. An empty path is a no-op.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.CacheFile != nil {
		cfg.CacheFile = *jc.CacheFile
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
