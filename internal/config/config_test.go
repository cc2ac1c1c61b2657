package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveAndLoadClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultClient()
	cfg.DefaultIdentity = "9000000001"
	cfg.PendingTimeout = Duration{45 * time.Second}
	cfg.HistoryPolicy = "merge"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if loaded.DefaultIdentity != "9000000001" {
		t.Errorf("DefaultIdentity = %q, want %q", loaded.DefaultIdentity, "9000000001")
	}
	if loaded.PendingTimeout.Duration != 45*time.Second {
		t.Errorf("PendingTimeout = %s, want 45s", loaded.PendingTimeout)
	}
	if loaded.HistoryPolicy != "merge" {
		t.Errorf("HistoryPolicy = %q, want merge", loaded.HistoryPolicy)
	}
}

func TestDurationWrittenAsString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Save(path, DefaultClient()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `pending_timeout = "30s"`) {
		t.Errorf("saved config does not carry a string duration:\n%s", data)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.toml")
	if err := os.WriteFile(path, []byte("http_addr = \":8181\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRelay(path)
	if err != nil {
		t.Fatalf("LoadRelay() error = %v", err)
	}
	if cfg.HTTPAddr != ":8181" {
		t.Errorf("HTTPAddr = %q, want :8181", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want default :9090", cfg.GRPCAddr)
	}
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadClient("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.RelayURL != DefaultClient().RelayURL {
		t.Errorf("RelayURL = %q, want default", cfg.RelayURL)
	}

	var raw Client
	if err := Load("/nonexistent/config.toml", &raw); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("pending_timeout = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClient(path); err == nil {
		t.Error("LoadClient() accepted an unparsable duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Client)
		wantErr string
	}{
		{"defaults", func(*Client) {}, ""},
		{"http relay url", func(c *Client) { c.RelayURL = "http://localhost/chat" }, "relay_url"},
		{"empty directory", func(c *Client) { c.DirectoryAddr = "" }, "directory_addr"},
		{"negative timeout", func(c *Client) { c.PendingTimeout = Duration{-time.Second} }, "pending_timeout"},
		{"zero timeout disables expiry", func(c *Client) { c.PendingTimeout = Duration{} }, ""},
		{"unknown policy", func(c *Client) { c.HistoryPolicy = "latest" }, "history_policy"},
		{"unknown level", func(c *Client) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClient()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestRelayValidate(t *testing.T) {
	cfg := DefaultRelay()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	cfg.GRPCAddr = ""
	cfg.HandshakeTimeout = Duration{}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "grpc_addr") || !strings.Contains(err.Error(), "handshake_timeout") {
		t.Errorf("Validate() error = %v, want both problems reported", err)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := Save(path, DefaultRelay()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
