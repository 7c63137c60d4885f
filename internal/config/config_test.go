package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if exists {
		t.Error("Load() reported a missing file as existing")
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendSQLite)
	}
	if cfg.Fetch.WindowBytes != 8192 {
		t.Errorf("Fetch.WindowBytes = %d, want 8192", cfg.Fetch.WindowBytes)
	}
	if !filepath.IsAbs(cfg.Store.Path) {
		t.Errorf("Store.Path = %q, want absolute", cfg.Store.Path)
	}
	if cfg.FetchTimeout() != 10*time.Second {
		t.Errorf("FetchTimeout() = %v", cfg.FetchTimeout())
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].ID != "default" {
		t.Errorf("Sources = %+v, want only the default source", cfg.Sources)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "redis"
redis_url = "redis://cache:6379/1"

[fetch]
window_bytes = 4096
timeout_seconds = 3

[server]
max_wins = 3

[logging]
level = "DEBUG"
format = "json"

[[sources]]
id = "webzook"
url = "http://logs.example:8008/webzook-0.30.logfile"
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !exists {
		t.Fatal("Load() did not find the file")
	}
	if cfg.Store.Backend != BackendRedis || cfg.Store.RedisURL != "redis://cache:6379/1" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Fetch.WindowBytes != 4096 || cfg.FetchTimeout() != 3*time.Second {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Server.MaxWins != 3 {
		t.Errorf("Server.MaxWins = %d, want 3", cfg.Server.MaxWins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want normalized %q", cfg.Logging.Level, "debug")
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("Sources = %+v, want configured + default", cfg.Sources)
	}
	if cfg.Sources[0].ID != "webzook" {
		t.Errorf("Sources[0].ID = %q", cfg.Sources[0].ID)
	}
	if cfg.LockPath() != "" {
		t.Errorf("LockPath() = %q, want empty for redis", cfg.LockPath())
	}
}

func TestLoad_EnvPath(t *testing.T) {
	path := writeConfig(t, "[follow]\ninterval_seconds = 30\n")
	t.Setenv(envConfigPath, path)

	cfg, resolved, exists, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !exists || resolved != path {
		t.Errorf("Load() resolved %q (exists=%v), want %q", resolved, exists, path)
	}
	if cfg.FollowInterval() != 30*time.Second {
		t.Errorf("FollowInterval() = %v", cfg.FollowInterval())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown backend", "[store]\nbackend = \"etcd\"\n", "store.backend"},
		{"negative window", "[fetch]\nwindow_bytes = -1\n", "window_bytes"},
		{"zero timeout", "[fetch]\ntimeout_seconds = 0\n", "timeout_seconds"},
		{"bad log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"bad source url", "[[sources]]\nid = \"x\"\nurl = \"ftp://host/log\"\n", "http(s) url"},
		{"duplicate source", "[[sources]]\nid = \"x\"\nurl = \"http://a/\"\n[[sources]]\nid = \"x\"\nurl = \"http://b/\"\n", "duplicate"},
		{"unknown field", "[store]\nbogus = 1\n", "parse config"},
		{"malformed toml", "[store\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := expandPath("~/state/positions.db")
	if err != nil {
		t.Fatalf("expandPath() error = %v", err)
	}
	want := filepath.Join(home, "state", "positions.db")
	if got != want {
		t.Errorf("expandPath() = %q, want %q", got, want)
	}

	if got, _ := expandPath(""); got != "" {
		t.Errorf("expandPath(\"\") = %q, want empty", got)
	}
}
