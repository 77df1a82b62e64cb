package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolveBaseDirectory(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		os   string
		vars map[string]string
		want string
	}{
		{
			name: "override wins over everything",
			os:   "linux",
			vars: map[string]string{HomeVar: "/srv/good", ModeVar: "production", "HOME": "/home/ann"},
			want: "/srv/good",
		},
		{
			name: "override on unknown os",
			os:   "plan9",
			vars: map[string]string{HomeVar: "/srv/good"},
			want: "/srv/good",
		},
		{
			name: "unset mode is development",
			os:   "linux",
			vars: map[string]string{"HOME": "/home/ann"},
			want: "./tmp/good-base",
		},
		{
			name: "development mode",
			os:   "darwin",
			vars: map[string]string{ModeVar: "development", "HOME": "/Users/ann"},
			want: "./tmp/good-base",
		},
		{
			name: "darwin",
			os:   "darwin",
			vars: map[string]string{ModeVar: "production", "HOME": "/Users/ann"},
			want: "/Users/ann/Library/Application Support/good-base",
		},
		{
			name: "linux default",
			os:   "linux",
			vars: map[string]string{ModeVar: "production", "HOME": "/home/ann"},
			want: "/home/ann/.local/share/good-base",
		},
		{
			name: "linux xdg",
			os:   "linux",
			vars: map[string]string{ModeVar: "production", "HOME": "/home/ann", "XDG_DATA_HOME": "/data/xdg"},
			want: "/data/xdg/good-base",
		},
		{
			name: "windows appdata",
			os:   "windows",
			vars: map[string]string{ModeVar: "production", "APPDATA": `C:\Users\ann\AppData\Roaming`},
			want: `C:\Users\ann\AppData\Roaming\good-base`,
		},
		{
			name: "windows userprofile",
			os:   "windows",
			vars: map[string]string{ModeVar: "production", "USERPROFILE": `C:\Users\ann`},
			want: `C:\Users\ann\AppData\Roaming\good-base`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveBaseDirectory(AppName, MapEnvironment(tc.os, tc.vars))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestResolveBaseDirectoryUnsupportedOS(t *testing.T) {
	t.Parallel()

	_, err := ResolveBaseDirectory(AppName, MapEnvironment("freebsd", map[string]string{ModeVar: "production"}))
	if !errors.Is(err, ErrUnsupportedOS) {
		t.Fatalf("expected ErrUnsupportedOS, got %v", err)
	}
}

func TestDeriveSubdirectories(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dirs, err := DeriveSubdirectories(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"config":    dirs.Config,
		"data":      dirs.Data,
		"logs":      dirs.Logs,
		"cache":     dirs.Cache,
		"backups":   dirs.Backups,
		"databases": dirs.Databases,
	}
	for name, got := range want {
		if got != filepath.Join(base, name) {
			t.Fatalf("expected %s dir %q, got %q", name, filepath.Join(base, name), got)
		}
	}

	db := dirs.Database("main")
	if db.Data != filepath.Join(base, "databases", "main", "data") {
		t.Fatalf("unexpected database data dir %q", db.Data)
	}
	if db.Backups != filepath.Join(base, "databases", "main", "backups") {
		t.Fatalf("unexpected database backup dir %q", db.Backups)
	}
	if dirs.AuthStore() != filepath.Join(base, "auth.db") {
		t.Fatalf("unexpected auth store %q", dirs.AuthStore())
	}
}

func TestDeriveSubdirectoriesMakesRelativeBaseAbsolute(t *testing.T) {
	t.Parallel()

	dirs, err := DeriveSubdirectories("./tmp/good-base")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(dirs.Base) || !filepath.IsAbs(dirs.Config) {
		t.Fatalf("expected absolute paths, got %+v", dirs)
	}
	if filepath.Base(dirs.Base) != "good-base" {
		t.Fatalf("expected base to end in good-base, got %q", dirs.Base)
	}
}
