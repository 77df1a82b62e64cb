package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Resolution results reported to a Recorder.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Recorder receives resolution outcomes, typically for metrics.
type Recorder interface {
	ConfigResolved(result string)
	SourceFailed(source string)
}

type nopRecorder struct{}

func (nopRecorder) ConfigResolved(string) {}
func (nopRecorder) SourceFailed(string)   {}

// Loader runs the resolution pipeline and caches the resulting Setup.
// Load and Reload must not run concurrently; Current is safe from any
// goroutine.
type Loader struct {
	appName    string
	env        Environment
	logger     *zap.Logger
	metrics    Recorder
	fileLoader FileLoader

	mu      sync.Mutex
	sources []Source

	current atomic.Pointer[Setup]
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvironment replaces the process environment.
func WithEnvironment(env Environment) Option {
	return func(l *Loader) {
		l.env = env
	}
}

// WithLogger sets the logger used for resolution warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithFileLoader selects the configuration file format of the default file source.
func WithFileLoader(loader FileLoader) Option {
	return func(l *Loader) {
		l.fileLoader = loader
	}
}

// WithSources replaces the default sources.
func WithSources(sources ...Source) Option {
	return func(l *Loader) {
		l.sources = append([]Source(nil), sources...)
	}
}

// WithMetrics reports resolution outcomes to r.
func WithMetrics(r Recorder) Option {
	return func(l *Loader) {
		if r != nil {
			l.metrics = r
		}
	}
}

// NewLoader creates a Loader for appName. Without WithSources it reads the
// configuration file and the environment.
func NewLoader(appName string, opts ...Option) *Loader {
	l := &Loader{
		appName:    appName,
		env:        ProcessEnvironment(),
		logger:     zap.NewNop(),
		metrics:    nopRecorder{},
		fileLoader: NewLuaLoader(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sources == nil {
		if luaLoader, ok := l.fileLoader.(*LuaLoader); ok && l.env.Lookup != nil {
			env := l.env
			l.fileLoader = luaLoader.WithGetenv(func(key string) string { return env.get(key) })
		}
		l.sources = []Source{
			NewFileSource(l.fileLoader),
			NewEnvSource(l.env, l.logger),
		}
	}
	return l
}

// AddSource registers an extra source for subsequent resolutions.
func (l *Loader) AddSource(src Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = append(l.sources, src)
}

// Sources returns the registered sources by descending priority; equal
// priorities keep registration order.
func (l *Loader) Sources() []Source {
	l.mu.Lock()
	sources := append([]Source(nil), l.sources...)
	l.mu.Unlock()
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() > sources[j].Priority()
	})
	return sources
}

// ordered returns the sources in application order: ascending priority,
// registration order within a priority.
func (l *Loader) ordered() []Source {
	l.mu.Lock()
	sources := append([]Source(nil), l.sources...)
	l.mu.Unlock()
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})
	return sources
}

// Validate checks cfg without resolving anything.
func (l *Loader) Validate(cfg Config) Problems {
	return Validate(cfg)
}

// Current returns the last published Setup or nil before the first
// successful Load.
func (l *Loader) Current() *Setup {
	return l.current.Load()
}

// Load resolves the configuration once; later calls return the cached Setup.
func (l *Loader) Load() (*Setup, error) {
	if setup := l.current.Load(); setup != nil {
		return setup, nil
	}
	return l.Reload()
}

// Reload discards the cached Setup and resolves from scratch. On failure
// the previous Setup stays current.
func (l *Loader) Reload() (*Setup, error) {
	setup, err := l.resolve()
	if err != nil {
		result := ResultError
		if errors.Is(err, ErrInvalidConfig) {
			result = ResultInvalid
		}
		l.metrics.ConfigResolved(result)
		return nil, err
	}
	l.current.Store(setup)
	l.metrics.ConfigResolved(ResultOK)
	return setup, nil
}

type pathSource interface {
	Path(dirs Directories) string
}

func (l *Loader) resolve() (*Setup, error) {
	base, err := ResolveBaseDirectory(l.appName, l.env)
	if err != nil {
		return nil, err
	}
	dirs, err := DeriveSubdirectories(base)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("resolved directories", zap.String("base", dirs.Base))

	setup := &Setup{Directories: dirs}
	cfg := Defaults(dirs)
	var mergeProblems Problems

	for _, src := range l.ordered() {
		status := SourceStatus{Name: src.Name(), Priority: src.Priority()}
		if ps, ok := src.(pathSource); ok && setup.ConfigFile == "" {
			setup.ConfigFile = ps.Path(dirs)
		}

		partial, err := src.Load(dirs)
		if err == nil {
			var warnings []string
			var merged Config
			merged, warnings, err = Merge(cfg, dirs, partial)
			if err == nil {
				for _, w := range warnings {
					mergeProblems = append(mergeProblems, Problem{Path: src.Name(), Message: w, Severity: SeverityWarning})
				}
				cfg = merged
				status.Applied = true
				setup.Sources = append(setup.Sources, status)
				continue
			}
		}

		if errors.Is(err, ErrConfigNotFound) {
			l.logger.Info("configuration file not found, example written", zap.String("source", src.Name()), zap.Error(err))
			setup.FirstRun = true
			status.Err = err.Error()
			setup.Sources = append(setup.Sources, status)
			continue
		}

		l.metrics.SourceFailed(src.Name())
		srcErr := &SourceError{Source: src.Name(), Err: err}
		if errors.Is(err, ErrMalformedConfig) || errors.Is(err, ErrSourceTimeout) || !src.Optional() {
			return nil, srcErr
		}
		l.logger.Warn("ignoring optional configuration source", zap.String("source", src.Name()), zap.Error(err))
		status.Err = err.Error()
		setup.Sources = append(setup.Sources, status)
	}

	l.ensureDirectories(cfg, dirs)

	problems := append(mergeProblems, Validate(cfg)...)
	if problems.HasFatal() {
		for _, p := range problems.Fatal() {
			l.logger.Error("invalid configuration", zap.String("path", p.Path), zap.String("problem", p.Message))
		}
		return nil, &ProblemsError{Problems: problems}
	}
	for _, p := range problems.Warnings() {
		l.logger.Warn("configuration problem", zap.String("path", p.Path), zap.String("problem", p.Message))
	}

	setup.Config = cfg
	setup.Problems = problems
	l.logger.Debug("configuration resolved",
		zap.String("base", dirs.Base),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("firstRun", setup.FirstRun),
	)
	return setup, nil
}

// ensureDirectories creates every directory the configuration refers to.
// Failures are logged and never abort the resolution.
func (l *Loader) ensureDirectories(cfg Config, dirs Directories) {
	want := []string{
		cfg.Database.DataDirectory,
		cfg.Database.BackupDirectory,
		cfg.Logging.LogDirectory,
		dirs.Cache,
		dirs.Config,
	}
	if cfg.CLI.HistoryFile != "" {
		want = append(want, filepath.Dir(cfg.CLI.HistoryFile))
	}
	for _, name := range sortedDatabaseNames(cfg.Databases) {
		db := cfg.Databases[name]
		dbDirs := dirs.Database(name)
		want = append(want, db.DataDirectory, dbDirs.Cache, dbDirs.Logs, db.BackupDirectory)
	}

	for _, dir := range want {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			l.logger.Warn("cannot create directory", zap.String("dir", dir), zap.Error(err))
		}
	}
}

func sortedDatabaseNames(dbs map[string]DatabaseConfig) []string {
	names := make([]string, 0, len(dbs))
	for name := range dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String summarises the setup for log lines and the shell.
func (s *Setup) String() string {
	return fmt.Sprintf("base=%s config=%s port=%d", s.Directories.Base, s.ConfigFile, s.Config.Server.Port)
}
