package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	// EnvPrefix marks the environment variables that override configuration.
	EnvPrefix = "GOOD_BASE_"

	dotenvFileName = ".env"
)

// envAliases maps short variable names (without prefix) to field paths.
// They are applied before canonical names, so GOOD_BASE_SERVER_PORT wins
// over GOOD_BASE_PORT.
var envAliases = map[string]string{
	"PORT":                "server.port",
	"HOST":                "server.host",
	"CORS_ORIGINS":        "server.corsOrigins",
	"DATA_DIR":            "database.dataDirectory",
	"BACKUP_DIR":          "database.backupDirectory",
	"ENABLE_BACKUPS":      "database.enableBackups",
	"AUTH_TOKEN":          "auth.defaultToken",
	"JWT_SECRET":          "auth.jwtSecret",
	"LOG_LEVEL":           "logging.level",
	"LOG_DIR":             "logging.logDirectory",
	"ENABLE_FILE_LOGGING": "logging.enableFileLogging",
	"CLI_AUTH_TIMEOUT":    "cli.authTimeoutMinutes",
}

// EnvSource decodes GOOD_BASE_ variables into a partial configuration.
type EnvSource struct {
	env     Environment
	schema  *Schema
	aliases map[string]string
	logger  *zap.Logger
}

// EnvOption configures an EnvSource.
type EnvOption func(*EnvSource)

// WithEnvSchema decodes names against a custom schema.
func WithEnvSchema(schema *Schema) EnvOption {
	return func(s *EnvSource) {
		s.schema = schema
	}
}

// WithEnvAliases replaces the alias table.
func WithEnvAliases(aliases map[string]string) EnvOption {
	return func(s *EnvSource) {
		s.aliases = aliases
	}
}

// NewEnvSource creates the environment source.
func NewEnvSource(env Environment, logger *zap.Logger, opts ...EnvOption) *EnvSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EnvSource{
		env:     env,
		schema:  ConfigSchema(),
		aliases: envAliases,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EnvSource) Name() string   { return "env" }
func (s *EnvSource) Priority() int  { return EnvPriority }
func (s *EnvSource) Optional() bool { return true }

// Load scans the prefixed variables of the .env file in the config
// directory and of the process; process values win.
func (s *EnvSource) Load(dirs Directories) (Partial, error) {
	vars, err := s.variables(dirs)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	partial := Partial{}
	for _, name := range names {
		if path, ok := s.aliases[name]; ok {
			s.apply(partial, name, strings.Split(path, "."), vars[name])
		}
	}
	for _, name := range names {
		if _, ok := s.aliases[name]; ok {
			continue
		}
		segments := strings.Split(strings.ToLower(name), "_")
		path, _, ok := s.schema.Resolve(segments)
		if !ok {
			s.logger.Debug("ignoring unrecognized variable", zap.String("variable", EnvPrefix+name))
			continue
		}
		s.apply(partial, name, path, vars[name])
	}
	return partial, nil
}

func (s *EnvSource) apply(partial Partial, name string, path []string, raw string) {
	kind, ok := s.schema.Lookup(path...)
	if !ok {
		s.logger.Debug("ignoring variable for unknown field", zap.String("variable", EnvPrefix+name))
		return
	}
	value, err := Coerce(raw, kind)
	if err != nil {
		s.logger.Warn("skipping environment override",
			zap.String("variable", EnvPrefix+name),
			zap.String("field", strings.Join(path, ".")),
			zap.Error(err),
		)
		return
	}
	partial.Set(strings.Join(path, "."), value)
}

// variables returns prefixed variables with the prefix stripped.
func (s *EnvSource) variables(dirs Directories) (map[string]string, error) {
	vars := make(map[string]string)

	if dirs.Config != "" {
		file, err := godotenv.Read(filepath.Join(dirs.Config, dotenvFileName))
		switch {
		case err == nil:
			for k, v := range file {
				s.collect(vars, k, v)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			s.logger.Warn("ignoring unreadable .env file", zap.String("dir", dirs.Config), zap.Error(err))
		}
	}

	if s.env.Environ != nil {
		for _, kv := range s.env.Environ() {
			k, v, ok := strings.Cut(kv, "=")
			if ok {
				s.collect(vars, k, v)
			}
		}
	}
	return vars, nil
}

func (s *EnvSource) collect(vars map[string]string, key, value string) {
	if !strings.HasPrefix(key, EnvPrefix) || key == HomeVar || key == ModeVar {
		return
	}
	name := strings.TrimPrefix(key, EnvPrefix)
	if name == "" {
		return
	}
	vars[strings.ToUpper(name)] = value
}
