package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// ListenAddr is the HTTP listen address for both ingest and playback.
	ListenAddr string `json:"listenAddr" yaml:"listenAddr"`
	// GzipLevel is the compression level applied to ingested payloads.
	GzipLevel int `json:"gzipLevel" yaml:"gzipLevel"`
	// SyncMaxAgeSec is the freshness window advertised on sync responses.
	SyncMaxAgeSec int `json:"syncMaxAgeSec" yaml:"syncMaxAgeSec"`
	// LiveEdgeOffset is how many fragments behind the live edge an
	// unparameterized sync lands.
	LiveEdgeOffset int `json:"liveEdgeOffset" yaml:"liveEdgeOffset"`
	// PostRatePerSec throttles ingest POSTs across all matches; 0 disables.
	PostRatePerSec int `json:"postRatePerSec" yaml:"postRatePerSec"`
	// PostBurst is the limiter burst when PostRatePerSec is set.
	PostBurst int `json:"postBurst" yaml:"postBurst"`
	// LogLevel / LogFormat configure process logging (console or json).
	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		GzipLevel:      6,
		SyncMaxAgeSec:  3,
		LiveEdgeOffset: 8,
		PostBurst:      32,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load reads configuration from a JSON or YAML file by extension. An empty
// path returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
