package paths

import (
	"os"
	"path/filepath"

	"github.com/matheus3301/chatbox/internal/config"
	"github.com/matheus3301/chatbox/internal/identity"
)

// EnvHome overrides the base directory.
const EnvHome = "CHATBOX_HOME"

// BaseDir returns $CHATBOX_HOME, or ~/.chatbox.
func BaseDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatbox")
}

// IdentityDir returns the identity-specific directory.
func IdentityDir(id identity.Identity) string {
	return filepath.Join(BaseDir(), "identities", id.String())
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// ClientLogPath returns the terminal client's log file path.
func ClientLogPath() string {
	return filepath.Join(LogDir(), "chatbox.log")
}

// RelayLogPath returns the relay daemon's log file path.
func RelayLogPath() string {
	return filepath.Join(LogDir(), "chatrelayd.log")
}

// RelayDBPath returns the default relay database path.
func RelayDBPath() string {
	return filepath.Join(BaseDir(), "relay.db")
}

// ConfigPath returns the client config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// RelayConfigPath returns the relay config file path.
func RelayConfigPath() string {
	return filepath.Join(BaseDir(), "relay.toml")
}

// EnsureDir creates the base directory tree with proper permissions.
func EnsureDir() error {
	for _, d := range []string{BaseDir(), LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// Resolve determines the identity prefilled in the registration form using
// precedence:
// 1. flagOverride (--identity flag)
// 2. default_identity from cfg
// 3. empty (the user types one)
func Resolve(flagOverride string, cfg *config.Client) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg != nil {
		return cfg.DefaultIdentity
	}
	return ""
}
