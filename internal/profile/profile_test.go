package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samiuddin-code/datportal-sub005/internal/config"
)

func TestPaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv("DATPORTAL_HOME", base)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"dir", Dir("main"), filepath.Join(base, "profiles", "main")},
		{"socket", SocketPath("main"), filepath.Join(base, "profiles", "main", "dpd.sock")},
		{"lock", LockPath("main"), filepath.Join(base, "profiles", "main", "LOCK")},
		{"cache", CachePath("main"), filepath.Join(base, "profiles", "main", "cache.db")},
		{"console", ConsolePath("main"), filepath.Join(base, "profiles", "main", "console.toml")},
		{"env", EnvPath("main"), filepath.Join(base, "profiles", "main", ".env")},
		{"log", LogPath("main"), filepath.Join(base, "profiles", "main", "logs", "dpd.log")},
		{"config", ConfigPath(), filepath.Join(base, "config.toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv("DATPORTAL_HOME", t.TempDir())

	if err := EnsureDir("work"); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(LogDir("work"))
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
	t.Setenv("DATPORTAL_HOME", t.TempDir())

	if got := Resolve("flag"); got != "flag" {
		t.Errorf("Resolve(flag) = %q, want flag", got)
	}
	if got := Resolve(""); got != DefaultName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultName)
	}

	if err := config.Save(ConfigPath(), &config.Config{DefaultProfile: "staging"}); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "staging" {
		t.Errorf("Resolve() = %q, want staging", got)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "main", false},
		{"valid with numbers", "work123", false},
		{"valid with hyphen", "my-profile", false},
		{"valid with underscore", "my_profile", false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"dot", "my.profile", true},
		{"slash", "../etc", true},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestList(t *testing.T) {
	t.Setenv("DATPORTAL_HOME", t.TempDir())

	names, err := List()
	if err != nil {
		t.Fatalf("List() on empty home: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() = %v, want none", names)
	}

	for _, n := range []string{"work", "main"} {
		if err := EnsureDir(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(BaseDir(), "profiles", "Bad Name"), 0700); err != nil {
		t.Fatal(err)
	}

	names, err = List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "main" || names[1] != "work" {
		t.Errorf("List() = %v, want [main work]", names)
	}
}
