package config

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func testDirectories(t *testing.T) Directories {
	t.Helper()

	dirs, err := DeriveSubdirectories(t.TempDir())
	if err != nil {
		t.Fatalf("derive directories: %v", err)
	}
	return dirs
}

func TestMergeReplacesOnlyPresentFields(t *testing.T) {
	t.Parallel()

	dirs := testDirectories(t)
	base := Defaults(dirs)

	got, warnings, err := Merge(base, dirs, Partial{
		"server": map[string]any{"port": 8080, "corsOrigins": []any{"https://a.example"}},
		"auth":   map[string]any{"required": true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if got.Server.Port != 8080 || got.Server.Host != base.Server.Host {
		t.Fatalf("unexpected server section %+v", got.Server)
	}
	if !slices.Equal(got.Server.CORSOrigins, []string{"https://a.example"}) {
		t.Fatalf("unexpected origins %v", got.Server.CORSOrigins)
	}
	if !got.Auth.Required || got.Auth.DefaultToken != base.Auth.DefaultToken {
		t.Fatalf("unexpected auth section %+v", got.Auth)
	}
	if base.Server.Port != 7777 || base.Auth.Required {
		t.Fatalf("expected input config to stay untouched, got %+v", base.Server)
	}
}

func TestMergeAcceptsNumericRepresentations(t *testing.T) {
	t.Parallel()

	dirs := testDirectories(t)
	got, _, err := Merge(Defaults(dirs), dirs, Partial{
		"server": map[string]any{"port": float64(9000), "rateLimitRps": 3, "rateLimitBurst": int64(7)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Server.Port != 9000 || got.Server.RateLimitRPS != 3 || got.Server.RateLimitBurst != 7 {
		t.Fatalf("unexpected server section %+v", got.Server)
	}
}

func TestMergeIsAtomicOnTypeErrors(t *testing.T) {
	t.Parallel()

	dirs := testDirectories(t)
	base := Defaults(dirs)

	got, _, err := Merge(base, dirs, Partial{
		"server": map[string]any{"host": "example.com", "port": "eighty"},
	})
	if !errors.Is(err, ErrCoercion) {
		t.Fatalf("expected ErrCoercion, got %v", err)
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Fatalf("expected error to name the field, got %v", err)
	}
	if got.Server.Host != "localhost" {
		t.Fatalf("expected no partial application, got host %q", got.Server.Host)
	}
}

func TestMergeRejectsNonMappingSections(t *testing.T) {
	t.Parallel()

	dirs := testDirectories(t)
	_, _, err := Merge(Defaults(dirs), dirs, Partial{"server": 5})
	if !errors.Is(err, ErrMalformedConfig) {
		t.Fatalf("expected ErrMalformedConfig, got %v", err)
	}
}

func TestMergeWarnsAboutUnknownKeys(t *testing.T) {
	t.Parallel()

	dirs := testDirectories(t)
	_, warnings, err := Merge(Defaults(dirs), dirs, Partial{
		"plugins": map[string]any{"x": 1},
		"server":  map[string]any{"bogus": true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected two warnings, got %v", warnings)
	}
}

func TestMergeSeedsNewDatabasesFromDatabaseSection(t *testing.T) {
	t.Parallel()

	dirs := testDirectories(t)
	got, _, err := Merge(Defaults(dirs), dirs, Partial{
		"database":  map[string]any{"backupInterval": 6},
		"databases": map[string]any{"analytics": map[string]any{"maxFileSize": 500}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	db, ok := got.Databases["analytics"]
	if !ok {
		t.Fatalf("expected analytics database, got %v", got.Databases)
	}
	want := dirs.Database("analytics")
	if db.DataDirectory != want.Data || db.BackupDirectory != want.Backups {
		t.Fatalf("expected directories under %s, got %+v", want.Base, db)
	}
	if db.MaxFileSize != 500 || db.BackupInterval != 6 || !db.EnableBackups {
		t.Fatalf("unexpected database settings %+v", db)
	}

	again, _, err := Merge(got, dirs, Partial{
		"databases": map[string]any{"analytics": map[string]any{"enableBackups": false}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db := again.Databases["analytics"]; db.MaxFileSize != 500 || db.EnableBackups {
		t.Fatalf("expected field-wise merge, got %+v", db)
	}
	if !got.Databases["analytics"].EnableBackups {
		t.Fatalf("expected earlier config to stay untouched")
	}
}

func TestPartialSetAndGet(t *testing.T) {
	t.Parallel()

	p := Partial{}
	p.Set("databases.main.maxFileSize", 5)
	p.Set("server.port", 1)

	if v, ok := p.Get("databases.main.maxFileSize"); !ok || v != 5 {
		t.Fatalf("unexpected value %v %v", v, ok)
	}
	if _, ok := p.Get("server.host"); ok {
		t.Fatalf("expected missing value")
	}
	if _, ok := p.Get("server.port.deeper"); ok {
		t.Fatalf("expected leaf not to be traversed")
	}
}

func TestMergeRejectsIntegersOutOfRange(t *testing.T) {
	t.Parallel()

	dirs := testDirectories(t)
	for _, value := range []any{uint64(1 << 63), float64(1 << 63), 1e300} {
		_, _, err := Merge(Defaults(dirs), dirs, Partial{
			"index": map[string]any{"maxCacheSize": value},
		})
		if !errors.Is(err, ErrCoercion) {
			t.Fatalf("%v: expected ErrCoercion, got %v", value, err)
		}
	}
}
