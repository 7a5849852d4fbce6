// Package config resolves client settings from, in increasing priority:
// defaults, the user config file, the project config file, TADA_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL   = "http://localhost:5000"
	DefaultTimeout  = 10 * time.Second
	DefaultTheme    = "classic"
	DefaultLogLevel = "warn"
	DefaultLogFmt   = "text"
)

// Config is the resolved client configuration.
type Config struct {
	APIURL    string        `toml:"api_url"`
	Timeout   time.Duration `toml:"timeout"`
	Theme     string        `toml:"theme"`
	LogLevel  string        `toml:"log_level"`
	LogFormat string        `toml:"log_format"`
	LogFile   string        `toml:"log_file"`
	Group     bool          `toml:"group"` // list grouped by active/completed

	// Files lists the config files that were applied, in order.
	Files []string `toml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		APIURL:    DefaultAPIURL,
		Timeout:   DefaultTimeout,
		Theme:     DefaultTheme,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFmt,
	}
}

type flagValues struct {
	config    string
	api       string
	timeout   time.Duration
	theme     string
	logLevel  string
	logFormat string
	logFile   string
	group     bool
}

// Load registers the root flags on fs, parses args and layers every source.
// It returns the arguments left after the flags.
func Load(fs *flag.FlagSet, args []string) (*Config, []string, error) {
	var f flagValues
	fs.StringVar(&f.config, "config", "", "config file (default: user and project tada.toml)")
	fs.StringVar(&f.api, "api", "", "todo API base URL (default "+DefaultAPIURL+")")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request timeout (default 10s)")
	fs.StringVar(&f.theme, "theme", "", "color theme: classic, neon or mono")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json or logfmt")
	fs.StringVar(&f.logFile, "log-file", "", "write logs to this file")
	fs.BoolVar(&f.group, "group", false, "group output by active/completed")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := Default()

	paths := searchPaths()
	if f.config != "" {
		paths = []string{expandPath(f.config)}
	}
	for _, p := range paths {
		if _, err := toml.DecodeFile(p, cfg); err != nil {
			if errors.Is(err, os.ErrNotExist) && f.config == "" {
				continue
			}
			return nil, nil, fmt.Errorf("loading config file %s: %w", p, err)
		}
		cfg.Files = append(cfg.Files, p)
	}

	loadFromEnv(cfg)

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "api":
			cfg.APIURL = f.api
		case "timeout":
			cfg.Timeout = f.timeout
		case "theme":
			cfg.Theme = f.theme
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "log-format":
			cfg.LogFormat = f.logFormat
		case "log-file":
			cfg.LogFile = f.logFile
		case "group":
			cfg.Group = f.group
		}
	})

	if err := cfg.finalize(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func (c *Config) finalize() error {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		return fmt.Errorf("api_url is empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	switch c.Theme {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("unknown theme %q (want classic, neon or mono)", c.Theme)
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	c.LogFile = expandPath(c.LogFile)
	return nil
}

// searchPaths lists the config files considered when --config is not set:
// user files first so the project file overrides them.
var searchPaths = func() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "tada", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".tada", "config.toml"))
	}
	if wd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(wd, "tada.toml"), filepath.Join(wd, ".tada.toml"))
	}
	return paths
}

func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
