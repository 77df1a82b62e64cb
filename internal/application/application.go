package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodbase/goodbase/internal/api"
	"github.com/goodbase/goodbase/internal/auth"
	"github.com/goodbase/goodbase/internal/command"
	"github.com/goodbase/goodbase/internal/config"
	"github.com/goodbase/goodbase/internal/logging"
	"github.com/goodbase/goodbase/internal/metrics"
	"github.com/goodbase/goodbase/internal/shell"
)

// ShutdownGracePeriod bounds how long in-flight requests may finish.
const ShutdownGracePeriod = 5 * time.Second

// App encapsulates the application dependencies and HTTP server.
type App struct {
	loader    *config.Loader
	logger    *zap.Logger
	level     *zap.AtomicLevel
	cmdLogger *logging.Swappable
	reqLogger *logging.Swappable
	metrics   *metrics.Metrics
	store     *auth.Store
	validator *auth.Validator
	registry  *command.Registry
	handler   *api.Handler
	router    http.Handler
	server    *http.Server

	reloadMu sync.Mutex
}

// Option configures an App.
type Option func(*App)

// WithLogLevel lets Reload apply logging.level to the process logger.
func WithLogLevel(level zap.AtomicLevel) Option {
	return func(a *App) {
		a.level = &level
	}
}

// New initializes the application from the setup already resolved by
// loader.
func New(ctx context.Context, loader *config.Loader, logger *zap.Logger, m *metrics.Metrics, opts ...Option) (*App, error) {
	setup := loader.Current()
	if setup == nil {
		return nil, errors.New("configuration not loaded")
	}
	cfg := setup.Config
	if m == nil {
		m = metrics.New()
	}

	store, err := auth.OpenStore(ctx, setup.Directories.AuthStore())
	if err != nil {
		return nil, fmt.Errorf("failed to open auth store: %w", err)
	}

	a := &App{
		loader:    loader,
		logger:    logger,
		cmdLogger: logging.NewSwappable(logging.NewCommandLogger(cfg.Logging)),
		reqLogger: logging.NewSwappable(logging.NewRequestLogger(cfg.Logging, logger)),
		metrics:   m,
		store:     store,
		registry:  command.NewRegistry(command.Builtins()...),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.validator = auth.NewValidator(a.authSettings, auth.WithStore(store))
	a.handler = api.NewHandler(a.registry, loader.Current,
		api.WithCommandLogger(a.cmdLogger.Logger),
		api.WithCommandMetrics(m),
	)
	routerOpts := append(RouterOptions(cfg, a.validator, m),
		api.WithRequestLoggerFunc(a.reqLogger.Logger),
	)
	a.router = api.NewRouter(a.handler, logger, routerOpts...)
	a.server = NewServer(cfg.Server, a.router)

	return a, nil
}

// RouterOptions translates the server section into router middleware
// settings and guards commands with authn.
func RouterOptions(cfg config.Config, authn api.Authenticator, m api.MetricsExporter) []api.RouterOption {
	opts := []api.RouterOption{
		api.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		api.WithCORS(cfg.Server.EnableCORS, cfg.Server.CORSOrigins),
		api.WithBodyLimit(int64(cfg.Server.MaxBodySize) << 20),
		api.WithTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second),
	}
	if authn != nil {
		opts = append(opts, api.WithAuth(authn))
	}
	if m != nil {
		opts = append(opts, api.WithMetrics(m))
	}
	return opts
}

// NewServer creates and configures an HTTP server from the server section.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Setup returns the active configuration.
func (a *App) Setup() *config.Setup {
	return a.loader.Current()
}

// Reload resolves the configuration again. Concurrent callers are
// serialized; on failure the previous setup stays active.
func (a *App) Reload() (*config.Setup, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	setup, err := a.loader.Reload()
	if err != nil {
		a.logger.Warn("configuration reload failed", zap.Error(err))
		return nil, err
	}
	a.applyLogging(setup.Config.Logging)
	a.logger.Info("configuration reloaded", zap.String("config_file", setup.ConfigFile))
	return setup, nil
}

// applyLogging rebuilds the command and request loggers and moves the
// process logger to the configured level. Log sinks of the process logger
// keep their startup destination.
func (a *App) applyLogging(cfg config.LoggingConfig) {
	a.cmdLogger.Swap(logging.NewCommandLogger(cfg))
	a.reqLogger.Swap(logging.NewRequestLogger(cfg, a.logger))
	if a.level == nil {
		return
	}
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		a.logger.Warn("keeping log level", zap.Error(err))
		return
	}
	a.level.SetLevel(level)
}

func (a *App) authSettings() config.AuthConfig {
	if setup := a.loader.Current(); setup != nil {
		return setup.Config.Auth
	}
	return config.AuthConfig{Required: true}
}

// Shell builds an interactive shell sharing the app's token store and
// reload path. Output that is not a terminal is never colored.
func (a *App) Shell(in io.Reader, out io.Writer) *shell.Shell {
	cli := a.Setup().Config.CLI
	history, err := shell.HistoryFor(cli)
	if err != nil {
		a.logger.Warn("command history unavailable", zap.Error(err))
		history = shell.NewHistory(cli.HistorySize)
	}

	session := auth.NewSession(func() time.Duration {
		return time.Duration(a.Setup().Config.CLI.AuthTimeoutMinutes) * time.Minute
	})
	env := &command.Env{
		Setup:   a.Setup,
		Reload:  a.Reload,
		Tokens:  a.store,
		Session: session,
		Logger:  a.cmdLogger.Logger,
		Metrics: a.metrics,
	}
	opts := []shell.Option{
		shell.WithIO(in, out),
		shell.WithHistory(history),
		shell.WithLogger(a.logger),
	}
	if f, ok := out.(*os.File); !ok || !logging.IsTerminal(f) {
		opts = append(opts, shell.WithPlainOutput())
	}
	return shell.New(a.registry, env, opts...)
}

// Serve listens on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGracePeriod)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := a.server.Close(); closeErr != nil {
			a.logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
	return <-errCh
}

// Run serves HTTP and, with sh set, runs the shell alongside it. Leaving
// the shell stops the server; the shell notices a cancelled ctx after its
// current line.
func (a *App) Run(ctx context.Context, sh *shell.Shell) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Serve(gctx)
	})
	if sh != nil {
		g.Go(func() error {
			defer cancel()
			return sh.Run(gctx)
		})
	}
	return g.Wait()
}

// Server returns the HTTP server instance.
func (a *App) Server() *http.Server {
	return a.server
}

// Close releases the token store and flushes the command log.
func (a *App) Close() error {
	_ = a.cmdLogger.Logger().Sync()
	_ = a.reqLogger.Logger().Sync()
	return a.store.Close()
}
