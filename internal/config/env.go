package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// loadFromEnv overrides cfg from TADA_* variables. Unparseable values are
// ignored.
func loadFromEnv(cfg *Config) {
	cfg.APIURL = envString("TADA_API_URL", cfg.APIURL)
	cfg.Timeout = envDuration("TADA_TIMEOUT", cfg.Timeout)
	cfg.Theme = envString("TADA_THEME", cfg.Theme)
	cfg.LogLevel = envString("TADA_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("TADA_LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = envString("TADA_LOG_FILE", cfg.LogFile)
	cfg.Group = envBool("TADA_GROUP", cfg.Group)
}

func envString(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// envDuration accepts Go durations ("15s") or whole seconds ("15").
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}
