package config

import (
	"slices"
	"testing"
)

func TestSchemaResolve(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		segments []string
		want     []string
		kind     Kind
	}{
		{"simple field", []string{"server", "port"}, []string{"server", "port"}, KindInt},
		{"camel case field", []string{"database", "max", "file", "size"}, []string{"database", "maxFileSize"}, KindInt},
		{"list field", []string{"server", "cors", "origins"}, []string{"server", "corsOrigins"}, KindStringList},
		{"float field", []string{"server", "rate", "limit", "rps"}, []string{"server", "rateLimitRps"}, KindFloat},
		{"database entry", []string{"databases", "main", "enable", "backups"}, []string{"databases", "main", "enableBackups"}, KindBool},
		{"underscored entry name", []string{"databases", "main", "db", "max", "file", "size"}, []string{"databases", "main_db", "maxFileSize"}, KindInt},
	}

	schema := ConfigSchema()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, kind, ok := schema.Resolve(tc.segments)
			if !ok {
				t.Fatalf("expected %v to resolve", tc.segments)
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("expected path %v, got %v", tc.want, got)
			}
			if kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, kind)
			}
		})
	}
}

func TestSchemaResolveUnknown(t *testing.T) {
	t.Parallel()

	schema := ConfigSchema()
	for _, segments := range [][]string{
		{"nope", "port"},
		{"server", "bogus"},
		{"server"},
		{"databases", "main"},
		{"server", "port", ""},
		{"server", "", "port"},
	} {
		if path, _, ok := schema.Resolve(segments); ok {
			t.Fatalf("expected %v not to resolve, got %v", segments, path)
		}
	}
}

func TestSchemaResolvePrefersShallowestField(t *testing.T) {
	t.Parallel()

	schema := &Schema{
		Fields: map[string]Kind{"serverPort": KindInt},
		Sections: map[string]*Schema{
			"server": {Fields: map[string]Kind{"port": KindString}},
		},
	}

	path, kind, ok := schema.Resolve([]string{"server", "port"})
	if !ok {
		t.Fatalf("expected name to resolve")
	}
	if !slices.Equal(path, []string{"serverPort"}) || kind != KindInt {
		t.Fatalf("expected root field serverPort, got %v (%s)", path, kind)
	}
}

func TestSchemaLookup(t *testing.T) {
	t.Parallel()

	schema := ConfigSchema()
	if kind, ok := schema.Lookup("databases", "anything", "maxFileSize"); !ok || kind != KindInt {
		t.Fatalf("expected integer entry field, got %s %v", kind, ok)
	}
	if kind, ok := schema.Lookup("cli", "prompt"); !ok || kind != KindString {
		t.Fatalf("expected string field, got %s %v", kind, ok)
	}
	if _, ok := schema.Lookup("cli", "missing"); ok {
		t.Fatalf("expected missing field lookup to fail")
	}
}

func TestSchemaPathsCoverEveryField(t *testing.T) {
	t.Parallel()

	paths := ConfigSchema().Paths()
	for _, want := range []string{"server.port", "auth.jwtSecret", "databases.*.backupInterval", "cli.authTimeoutMinutes"} {
		if !slices.Contains(paths, want) {
			t.Fatalf("expected %s in %v", want, paths)
		}
	}
}
