package config

import (
	"os"
	"strconv"
)

// FromEnv overlays PLAYCAST_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PLAYCAST_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PLAYCAST_GZIP_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GzipLevel = n
		}
	}
	if v := os.Getenv("PLAYCAST_SYNC_MAX_AGE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SyncMaxAgeSec = n
		}
	}
	if v := os.Getenv("PLAYCAST_LIVE_EDGE_OFFSET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LiveEdgeOffset = n
		}
	}
	if v := os.Getenv("PLAYCAST_POST_RATE_PER_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PostRatePerSec = n
		}
	}
	if v := os.Getenv("PLAYCAST_POST_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PostBurst = n
		}
	}
	if v := os.Getenv("PLAYCAST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PLAYCAST_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
