package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func loadEnv(t *testing.T, vars map[string]string, dirs Directories) Partial {
	t.Helper()

	partial, err := NewEnvSource(MapEnvironment("linux", vars), zaptest.NewLogger(t)).Load(dirs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return partial
}

func expectValue(t *testing.T, partial Partial, path string, want any) {
	t.Helper()

	got, ok := partial.Get(path)
	if !ok {
		t.Fatalf("expected %s to be set in %v", path, partial)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %s = %#v, got %#v", path, want, got)
	}
}

func TestEnvSourceDecodesCanonicalNames(t *testing.T) {
	t.Parallel()

	partial := loadEnv(t, map[string]string{
		"GOOD_BASE_SERVER_PORT":                     "8080",
		"GOOD_BASE_SERVER_HOST":                     "0.0.0.0",
		"GOOD_BASE_SERVER_ENABLE_CORS":              "false",
		"GOOD_BASE_SERVER_RATE_LIMIT_RPS":           "2.5",
		"GOOD_BASE_SERVER_CORS_ORIGINS":             "https://a.example, https://b.example",
		"GOOD_BASE_DATABASE_MAX_FILE_SIZE":          "250",
		"GOOD_BASE_DATABASES_MAIN_DB_ENABLE_BACKUPS": "no",
		"GOOD_BASE_AUTH_DEFAULT_TOKEN":              "",
	}, Directories{})

	expectValue(t, partial, "server.port", 8080)
	expectValue(t, partial, "server.host", "0.0.0.0")
	expectValue(t, partial, "server.enableCors", false)
	expectValue(t, partial, "server.rateLimitRps", 2.5)
	expectValue(t, partial, "server.corsOrigins", []string{"https://a.example", "https://b.example"})
	expectValue(t, partial, "database.maxFileSize", 250)
	expectValue(t, partial, "databases.main_db.enableBackups", false)
	expectValue(t, partial, "auth.defaultToken", "")
}

func TestEnvSourceAliasesLoseToCanonicalNames(t *testing.T) {
	t.Parallel()

	partial := loadEnv(t, map[string]string{
		"GOOD_BASE_PORT":         "9000",
		"GOOD_BASE_SERVER_PORT":  "8080",
		"GOOD_BASE_CORS_ORIGINS": `["https://x.example"]`,
		"GOOD_BASE_LOG_LEVEL":    "debug",
	}, Directories{})

	expectValue(t, partial, "server.port", 8080)
	expectValue(t, partial, "server.corsOrigins", []string{"https://x.example"})
	expectValue(t, partial, "logging.level", "debug")
}

func TestEnvSourceIgnoresReservedAndUnknownNames(t *testing.T) {
	t.Parallel()

	partial := loadEnv(t, map[string]string{
		HomeVar:                  "/srv/good",
		ModeVar:                  "production",
		"PATH":                   "/usr/bin",
		"GOOD_BASE_":             "x",
		"GOOD_BASE_NOPE_THING":   "1",
		"GOOD_BASE_SERVER_NOPE":  "1",
		"GOOD_BASE_SERVER_PORT_": "1",
		"GOOD_BASE_SERVER__PORT": "1",
	}, Directories{})

	if len(partial) != 0 {
		t.Fatalf("expected empty partial, got %v", partial)
	}
}

func TestEnvSourceSkipsValuesThatDoNotCoerce(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	src := NewEnvSource(MapEnvironment("linux", map[string]string{
		"GOOD_BASE_SERVER_PORT": "eighty",
		"GOOD_BASE_SERVER_HOST": "example.com",
	}), zap.New(core))

	partial, err := src.Load(Directories{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := partial.Get("server.port"); ok {
		t.Fatalf("expected port to be skipped, got %v", partial)
	}
	expectValue(t, partial, "server.host", "example.com")

	if n := logs.FilterMessage("skipping environment override").Len(); n != 1 {
		t.Fatalf("expected one coercion warning, got %d", n)
	}
}

func TestEnvSourceReadsDotenvUnderProcessEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dotenv := "GOOD_BASE_SERVER_HOST=from-file\nGOOD_BASE_SERVER_PORT=1111\nOTHER=ignored\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	partial := loadEnv(t, map[string]string{"GOOD_BASE_SERVER_PORT": "2222"}, Directories{Config: dir})

	expectValue(t, partial, "server.host", "from-file")
	expectValue(t, partial, "server.port", 2222)
	if _, ok := os.LookupEnv("GOOD_BASE_SERVER_HOST"); ok {
		t.Fatalf("expected .env values not to be exported")
	}
}

func TestEnvSourceMetadata(t *testing.T) {
	t.Parallel()

	src := NewEnvSource(MapEnvironment("linux", nil), nil)
	if src.Name() != "env" || src.Priority() != EnvPriority || !src.Optional() {
		t.Fatalf("unexpected metadata %s/%d/%v", src.Name(), src.Priority(), src.Optional())
	}
}
