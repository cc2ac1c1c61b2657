package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus3301/chatbox/internal/config"
)

func TestBaseDirDefault(t *testing.T) {
	t.Setenv(EnvHome, "")
	home, _ := os.UserHomeDir()
	if got, want := BaseDir(), filepath.Join(home, ".chatbox"); got != want {
		t.Errorf("BaseDir() = %q, want %q", got, want)
	}
}

func TestBaseDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)

	if got := BaseDir(); got != dir {
		t.Errorf("BaseDir() = %q, want %q", got, dir)
	}
	if got := IdentityDir("9000000001"); got != filepath.Join(dir, "identities", "9000000001") {
		t.Errorf("IdentityDir() = %q", got)
	}
	if got := RelayDBPath(); !strings.HasPrefix(got, dir) {
		t.Errorf("RelayDBPath() = %q, want under %q", got, dir)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	t.Setenv(EnvHome, dir)

	if err := EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(LogDir())
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("log dir is not a directory")
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("log dir permission = %o, want 0700", perm)
	}
}

func TestResolve(t *testing.T) {
	cfg := &config.Client{DefaultIdentity: "9000000002"}
	tests := []struct {
		name string
		flag string
		cfg  *config.Client
		want string
	}{
		{"flag wins", "9000000001", cfg, "9000000001"},
		{"config default", "", cfg, "9000000002"},
		{"nothing", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.flag, tt.cfg); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
