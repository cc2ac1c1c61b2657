package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Client represents the client's ~/.chatbox/config.toml.
type Client struct {
	RelayURL         string   `toml:"relay_url"`
	DirectoryAddr    string   `toml:"directory_addr"`
	DefaultIdentity  string   `toml:"default_identity"`
	PendingTimeout   Duration `toml:"pending_timeout"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
	HistoryPolicy    string   `toml:"history_policy"`
	LogLevel         string   `toml:"log_level"`
}

// Relay represents the relay daemon's ~/.chatbox/relay.toml.
type Relay struct {
	HTTPAddr         string   `toml:"http_addr"`
	GRPCAddr         string   `toml:"grpc_addr"`
	DBPath           string   `toml:"db_path"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
	LogLevel         string   `toml:"log_level"`
}

// DefaultClient returns the client defaults.
func DefaultClient() *Client {
	return &Client{
		RelayURL:         "ws://localhost:8080/chat",
		DirectoryAddr:    "localhost:9090",
		PendingTimeout:   Duration{30 * time.Second},
		HandshakeTimeout: Duration{10 * time.Second},
		HistoryPolicy:    "replace",
		LogLevel:         "info",
	}
}

// DefaultRelay returns the relay defaults. An empty DBPath means the
// default location under the base dir.
func DefaultRelay() *Relay {
	return &Relay{
		HTTPAddr:         ":8080",
		GRPCAddr:         ":9090",
		HandshakeTimeout: Duration{10 * time.Second},
		LogLevel:         "info",
	}
}

// Validate checks the client config for values the client cannot run with.
func (c *Client) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.RelayURL, "ws://") && !strings.HasPrefix(c.RelayURL, "wss://") {
		errs = append(errs, fmt.Errorf("relay_url %q: must be a ws:// or wss:// URL", c.RelayURL))
	}
	if c.DirectoryAddr == "" {
		errs = append(errs, errors.New("directory_addr: must not be empty"))
	}
	if c.PendingTimeout.Duration < 0 {
		errs = append(errs, errors.New("pending_timeout: must not be negative"))
	}
	if c.HandshakeTimeout.Duration <= 0 {
		errs = append(errs, errors.New("handshake_timeout: must be positive"))
	}
	switch c.HistoryPolicy {
	case "", "replace", "merge":
	default:
		errs = append(errs, fmt.Errorf("history_policy %q: must be replace or merge", c.HistoryPolicy))
	}
	if err := validLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the relay config.
func (r *Relay) Validate() error {
	var errs []error
	if r.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr: must not be empty"))
	}
	if r.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc_addr: must not be empty"))
	}
	if r.HandshakeTimeout.Duration <= 0 {
		errs = append(errs, errors.New("handshake_timeout: must be positive"))
	}
	if err := validLevel(r.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validLevel(level string) error {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log_level %q: must be debug, info, warn or error", level)
}

// Load decodes the TOML file at path over cfg, which carries the defaults.
// Returns an error if the file is missing.
func Load[T any](path string, cfg *T) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// LoadClient reads the client config at path, falling back to the defaults
// when the file does not exist.
func LoadClient(path string) (*Client, error) {
	cfg := DefaultClient()
	if err := loadOrDefault(path, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadRelay reads the relay config at path, falling back to the defaults
// when the file does not exist.
func LoadRelay(path string) (*Relay, error) {
	cfg := DefaultRelay()
	if err := loadOrDefault(path, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func loadOrDefault[T any](path string, cfg *T) error {
	err := Load(path, cfg)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to the given path, creating parent dirs as needed.
func Save(path string, cfg any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
