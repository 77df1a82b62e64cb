package config

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const databasesSection = "databases"

// databaseFields binds the settings shared by the database section and the
// entries of the databases map.
var databaseFields = map[string]func(*DatabaseConfig) any{
	"dataDirectory":   func(d *DatabaseConfig) any { return &d.DataDirectory },
	"maxFileSize":     func(d *DatabaseConfig) any { return &d.MaxFileSize },
	"enableBackups":   func(d *DatabaseConfig) any { return &d.EnableBackups },
	"backupDirectory": func(d *DatabaseConfig) any { return &d.BackupDirectory },
	"backupInterval":  func(d *DatabaseConfig) any { return &d.BackupInterval },
}

// sectionFields is the typed field registry: section -> field -> pointer
// into a Config. Kinds are derived from the pointer types.
var sectionFields = map[string]map[string]func(*Config) any{
	"database": bindDatabase(func(c *Config) *DatabaseConfig { return &c.Database }),
	"server": {
		"host":           func(c *Config) any { return &c.Server.Host },
		"port":           func(c *Config) any { return &c.Server.Port },
		"enableCors":     func(c *Config) any { return &c.Server.EnableCORS },
		"corsOrigins":    func(c *Config) any { return &c.Server.CORSOrigins },
		"requestTimeout": func(c *Config) any { return &c.Server.RequestTimeout },
		"maxBodySize":    func(c *Config) any { return &c.Server.MaxBodySize },
		"rateLimitRps":   func(c *Config) any { return &c.Server.RateLimitRPS },
		"rateLimitBurst": func(c *Config) any { return &c.Server.RateLimitBurst },
	},
	"auth": {
		"required":         func(c *Config) any { return &c.Auth.Required },
		"defaultToken":     func(c *Config) any { return &c.Auth.DefaultToken },
		"validationMethod": func(c *Config) any { return &c.Auth.ValidationMethod },
		"jwtSecret":        func(c *Config) any { return &c.Auth.JWTSecret },
		"externalEndpoint": func(c *Config) any { return &c.Auth.ExternalEndpoint },
	},
	"index": {
		"defaultLevel":          func(c *Config) any { return &c.Index.DefaultLevel },
		"optimizationThreshold": func(c *Config) any { return &c.Index.OptimizationThreshold },
		"autoOptimize":          func(c *Config) any { return &c.Index.AutoOptimize },
		"enableCache":           func(c *Config) any { return &c.Index.EnableCache },
		"maxCacheSize":          func(c *Config) any { return &c.Index.MaxCacheSize },
	},
	"logging": {
		"level":                func(c *Config) any { return &c.Logging.Level },
		"enableFileLogging":    func(c *Config) any { return &c.Logging.EnableFileLogging },
		"enableCommandLogging": func(c *Config) any { return &c.Logging.EnableCommandLogging },
		"enableRequestLogging": func(c *Config) any { return &c.Logging.EnableRequestLogging },
		"logDirectory":         func(c *Config) any { return &c.Logging.LogDirectory },
		"maxLogFileSize":       func(c *Config) any { return &c.Logging.MaxLogFileSize },
		"maxLogFiles":          func(c *Config) any { return &c.Logging.MaxLogFiles },
	},
	"cli": {
		"historyFile":        func(c *Config) any { return &c.CLI.HistoryFile },
		"historySize":        func(c *Config) any { return &c.CLI.HistorySize },
		"persistentHistory":  func(c *Config) any { return &c.CLI.PersistentHistory },
		"enableColors":       func(c *Config) any { return &c.CLI.EnableColors },
		"prompt":             func(c *Config) any { return &c.CLI.Prompt },
		"authTimeoutMinutes": func(c *Config) any { return &c.CLI.AuthTimeoutMinutes },
	},
}

// sectionOrder fixes the order in which sections of a partial are applied.
var sectionOrder = []string{"database", databasesSection, "server", "auth", "index", "logging", "cli"}

func bindDatabase(section func(*Config) *DatabaseConfig) map[string]func(*Config) any {
	out := make(map[string]func(*Config) any, len(databaseFields))
	for name, bind := range databaseFields {
		bind := bind
		out[name] = func(c *Config) any { return bind(section(c)) }
	}
	return out
}

var configSchema = buildSchema()

// ConfigSchema returns the schema of Config used to decode environment
// variable names.
func ConfigSchema() *Schema {
	return configSchema
}

func buildSchema() *Schema {
	root := &Schema{Sections: make(map[string]*Schema, len(sectionFields)+1)}
	var probe Config
	for section, fields := range sectionFields {
		node := &Schema{Fields: make(map[string]Kind, len(fields))}
		for name, bind := range fields {
			node.Fields[name] = kindOf(bind(&probe))
		}
		root.Sections[section] = node
	}

	entry := &Schema{Fields: make(map[string]Kind, len(databaseFields))}
	var db DatabaseConfig
	for name, bind := range databaseFields {
		entry.Fields[name] = kindOf(bind(&db))
	}
	root.Sections[databasesSection] = &Schema{Entries: entry}
	return root
}

func kindOf(ptr any) Kind {
	switch ptr.(type) {
	case *string:
		return KindString
	case *int:
		return KindInt
	case *float64:
		return KindFloat
	case *bool:
		return KindBool
	case *[]string:
		return KindStringList
	default:
		return KindAny
	}
}

// assign stores a decoded value into the field behind ptr. Values come
// from YAML, Lua or the environment decoder, so several numeric and list
// representations are accepted.
func assign(ptr any, value any) error {
	switch p := ptr.(type) {
	case *string:
		s, ok := value.(string)
		if !ok {
			return typeError(KindString, value)
		}
		*p = s
	case *bool:
		b, ok := value.(bool)
		if !ok {
			return typeError(KindBool, value)
		}
		*p = b
	case *int:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		*p = n
	case *float64:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		*p = f
	case *[]string:
		list, err := toStringList(value)
		if err != nil {
			return err
		}
		*p = list
	default:
		return fmt.Errorf("unsupported field type %T", ptr)
	}
	return nil
}

func typeError(want Kind, got any) error {
	return fmt.Errorf("%w: expected %s, got %T", ErrCoercion, want, got)
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("%w: %d is out of range", ErrCoercion, v)
		}
		return int(v), nil
	case int32:
		return int(v), nil
	case uint64:
		if v > math.MaxInt {
			return 0, fmt.Errorf("%w: %d is out of range", ErrCoercion, v)
		}
		return int(v), nil
	case float64:
		return wholeInt(v)
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrCoercion, v)
		}
		return n, nil
	default:
		return 0, typeError(KindInt, value)
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, typeError(KindFloat, value)
	}
}

func toStringList(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, typeError(KindString, item)
			}
			out = append(out, s)
		}
		return out, nil
	case map[string]any:
		// An empty Lua table cannot tell a list from a map.
		if len(v) == 0 {
			return []string{}, nil
		}
		return nil, typeError(KindStringList, value)
	default:
		return nil, typeError(KindStringList, value)
	}
}

// Merge applies a partial onto cfg one section at a time: every field
// present in the partial replaces the running value, everything else is
// left untouched. Named databases that do not exist yet start from the
// database section with directories under their own subtree. Unknown
// sections and fields are returned as warnings; a value of the wrong type
// is an error and leaves cfg unchanged.
func Merge(cfg Config, dirs Directories, partial Partial) (Config, []string, error) {
	out := cfg.Clone()
	var warnings []string

	for name := range partial {
		if _, known := sectionFields[name]; !known && name != databasesSection {
			warnings = append(warnings, fmt.Sprintf("unknown configuration section %q", name))
		}
	}

	for _, section := range sectionOrder {
		raw, ok := partial[section]
		if !ok || raw == nil {
			continue
		}
		values, ok := raw.(map[string]any)
		if !ok {
			return cfg, warnings, fmt.Errorf("%w: section %q is %T, not a mapping", ErrMalformedConfig, section, raw)
		}

		if section == databasesSection {
			w, err := mergeDatabases(&out, dirs, values)
			warnings = append(warnings, w...)
			if err != nil {
				return cfg, warnings, err
			}
			continue
		}

		fields := sectionFields[section]
		for _, field := range sortedKeys(values) {
			value := values[field]
			bind, ok := fields[field]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("unknown configuration field %s.%s", section, field))
				continue
			}
			if value == nil {
				continue
			}
			if err := assign(bind(&out), value); err != nil {
				return cfg, warnings, fmt.Errorf("%s.%s: %w", section, field, err)
			}
		}
	}
	return out, warnings, nil
}

func mergeDatabases(cfg *Config, dirs Directories, entries map[string]any) ([]string, error) {
	var warnings []string
	if cfg.Databases == nil {
		cfg.Databases = make(map[string]DatabaseConfig, len(entries))
	}
	for _, name := range sortedKeys(entries) {
		raw := entries[name]
		if raw == nil {
			continue
		}
		values, ok := raw.(map[string]any)
		if !ok {
			return warnings, fmt.Errorf("%w: databases.%s is %T, not a mapping", ErrMalformedConfig, name, raw)
		}
		db, exists := cfg.Databases[name]
		if !exists {
			db = newDatabaseConfig(cfg.Database, dirs.Database(name))
		}
		for _, field := range sortedKeys(values) {
			bind, ok := databaseFields[field]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("unknown configuration field databases.%s.%s", name, field))
				continue
			}
			if values[field] == nil {
				continue
			}
			if err := assign(bind(&db), values[field]); err != nil {
				return warnings, fmt.Errorf("databases.%s.%s: %w", name, field, err)
			}
		}
		cfg.Databases[name] = db
	}
	return warnings, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores value at a dot-separated path of the partial, creating
// intermediate levels.
func (p Partial) Set(path string, value any) {
	parts := strings.Split(path, ".")
	current := map[string]any(p)
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Get returns the value stored at a dot-separated path of the partial.
func (p Partial) Get(path string) (any, bool) {
	current := any(map[string]any(p))
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
