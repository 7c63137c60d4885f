package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultSourceID is polled when a command names no source.
const DefaultSourceID = defaultSourceID

// Store selects and configures the position store.
type Store struct {
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
}

// Fetch configures requests to the upstream logfile.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	WindowBytes    int64  `toml:"window_bytes"`
	UserAgent      string `toml:"user_agent"`
}

// Server configures the wins HTTP endpoint.
type Server struct {
	Addr string `toml:"addr"`
	// MaxWins caps the wins returned per request. 0 returns all.
	MaxWins int `toml:"max_wins"`
}

// LogServer configures the upstream logfile byte server.
type LogServer struct {
	Addr string `toml:"addr"`
	File string `toml:"file"`
}

// Follow configures repeated polling.
type Follow struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	WatchFile       string `toml:"watch_file"`
}

// NATS configures publishing of wins. Empty URL disables publishing.
type NATS struct {
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Source maps a source ID to the URL of its logfile.
type Source struct {
	ID  string `toml:"id"`
	URL string `toml:"url"`
}

// Config encapsulates all configuration values for wintail.
type Config struct {
	Store     Store     `toml:"store"`
	Fetch     Fetch     `toml:"fetch"`
	Server    Server    `toml:"server"`
	LogServer LogServer `toml:"log_server"`
	Follow    Follow    `toml:"follow"`
	NATS      NATS      `toml:"nats"`
	Logging   Logging   `toml:"logging"`
	Sources   []Source  `toml:"sources"`
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// FetchTimeout returns the per-request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// FollowInterval returns the delay between follow-mode polls.
func (c *Config) FollowInterval() time.Duration {
	return time.Duration(c.Follow.IntervalSeconds) * time.Second
}

// LockPath returns the file used to serialize writers of the position store,
// or "" when the backend has no local file.
func (c *Config) LockPath() string {
	if c.Store.Backend != BackendSQLite {
		return ""
	}
	return c.Store.Path + ".lock"
}

func (c *Config) normalize() error {
	var err error
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	if c.LogServer.File, err = expandPath(c.LogServer.File); err != nil {
		return fmt.Errorf("log_server.file: %w", err)
	}
	if c.Follow.WatchFile, err = expandPath(c.Follow.WatchFile); err != nil {
		return fmt.Errorf("follow.watch_file: %w", err)
	}
	if strings.TrimSpace(c.NATS.SubjectPrefix) == "" {
		c.NATS.SubjectPrefix = defaultNATSSubjectPrefix
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	hasDefault := false
	for i := range c.Sources {
		c.Sources[i].ID = strings.TrimSpace(c.Sources[i].ID)
		c.Sources[i].URL = strings.TrimSpace(c.Sources[i].URL)
		if c.Sources[i].ID == defaultSourceID {
			hasDefault = true
		}
	}
	if !hasDefault {
		c.Sources = append(c.Sources, Source{ID: defaultSourceID, URL: defaultSourceURL})
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.Store.RedisURL) == "" {
			return errors.New("store.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q (valid: sqlite, redis, memory)", c.Store.Backend)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be positive, got %d", c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.WindowBytes < 0 {
		return fmt.Errorf("fetch.window_bytes must be non-negative, got %d", c.Fetch.WindowBytes)
	}
	if c.Follow.IntervalSeconds < 0 {
		return fmt.Errorf("follow.interval_seconds must be non-negative, got %d", c.Follow.IntervalSeconds)
	}
	if c.Server.MaxWins < 0 {
		return fmt.Errorf("server.max_wins must be non-negative, got %d", c.Server.MaxWins)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: must be text or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			return errors.New("sources: id is required")
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("sources: duplicate id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("sources: %q needs an http(s) url, got %q", s.ID, s.URL)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
