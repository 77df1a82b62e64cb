package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goodbase/goodbase/internal/auth"
)

// Authenticator decides whether a bearer token may run commands.
type Authenticator interface {
	Required() bool
	Validate(ctx context.Context, token string) error
}

// MetricsExporter records served requests and exposes the collected metrics.
type MetricsExporter interface {
	RequestServed(path string, status int)
	Handler() http.Handler
}

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRequestLogger sends access logs to logger instead of the router logger.
func WithRequestLogger(logger *zap.Logger) RouterOption {
	return func(cfg *routerConfig) {
		cfg.accessLogger = func() *zap.Logger { return logger }
	}
}

// WithRequestLoggerFunc sends access logs to the logger returned by fn,
// which is called once per request.
func WithRequestLoggerFunc(fn func() *zap.Logger) RouterOption {
	return func(cfg *routerConfig) {
		cfg.accessLogger = fn
	}
}

// WithRateLimiter overrides the default request rate limiter (primarily for tests).
func WithRateLimiter(limiter rateLimiter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiter
	}
}

// WithRateLimit installs a token bucket of rps requests per second. A
// non-positive rate disables limiting.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		if rps <= 0 {
			cfg.rateLimiter = nil
			return
		}
		cfg.rateLimiter = newTokenBucketLimiter(rps, burst)
	}
}

// WithCORS answers cross origin requests from origins. "*" allows any origin.
func WithCORS(enabled bool, origins []string) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableCORS = enabled
		cfg.corsOrigins = origins
	}
}

// WithAuth guards command execution with authn.
func WithAuth(authn Authenticator) RouterOption {
	return func(cfg *routerConfig) {
		cfg.auth = authn
	}
}

// WithBodyLimit caps request bodies at limit bytes; zero means unlimited.
func WithBodyLimit(limit int64) RouterOption {
	return func(cfg *routerConfig) {
		cfg.bodyLimit = limit
	}
}

// WithTimeout bounds the time a request may take; zero means unbounded.
func WithTimeout(timeout time.Duration) RouterOption {
	return func(cfg *routerConfig) {
		cfg.timeout = timeout
	}
}

// WithMetrics counts requests and serves GET /metrics.
func WithMetrics(m MetricsExporter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.metrics = m
	}
}

type routerConfig struct {
	enableLogging bool
	logger        *zap.Logger
	accessLogger  func() *zap.Logger
	rateLimiter   rateLimiter
	enableCORS    bool
	corsOrigins   []string
	auth          Authenticator
	bodyLimit     int64
	timeout       time.Duration
	metrics       MetricsExporter
}

// NewRouter creates an HTTP router with standard middleware.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	cfg := routerConfig{
		enableLogging: true,
		logger:        logger,
		rateLimiter:   newTokenBucketLimiter(10, 20),
		enableCORS:    true,
		corsOrigins:   []string{"*"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.accessLogger == nil {
		logger := cfg.logger
		cfg.accessLogger = func() *zap.Logger { return logger }
	}

	var runCommand http.Handler = http.HandlerFunc(handler.handleCommand)
	if cfg.auth != nil {
		runCommand = authMiddleware(cfg.auth, runCommand)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/health", http.HandlerFunc(handler.handleHealth))
	mux.Handle("GET /api/help", http.HandlerFunc(handler.handleHelp))
	mux.Handle("POST /api/{command}", runCommand)
	if cfg.metrics != nil {
		mux.Handle("GET /metrics", cfg.metrics.Handler())
	}

	var root http.Handler = mux
	if cfg.metrics != nil {
		root = metricsMiddleware(cfg.metrics, root)
	}
	root = timeoutMiddleware(cfg.timeout, root)
	root = bodyLimitMiddleware(cfg.bodyLimit, root)
	if cfg.enableCORS {
		root = corsMiddleware(cfg.corsOrigins, root)
	}
	root = recoveryMiddleware(cfg.logger, root)
	if cfg.enableLogging {
		root = loggingMiddleware(cfg.accessLogger, root)
	}
	root = rateLimitMiddleware(cfg.rateLimiter, root)
	root = requestIDMiddleware(root)

	return root
}

func corsMiddleware(origins []string, next http.Handler) http.Handler {
	anyOrigin := slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Requested-With")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

var bearerPattern = regexp.MustCompile(`^Bearer\s+(.+)$`)

func bearerToken(r *http.Request) string {
	match := bearerPattern.FindStringSubmatch(r.Header.Get("Authorization"))
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func authMiddleware(authn Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authn.Required() {
			next.ServeHTTP(w, r)
			return
		}
		err := authn.Validate(r.Context(), bearerToken(r))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, auth.ErrMissingToken):
			writeError(w, http.StatusUnauthorized, "Missing required authorization", err.Error(), "send Authorization: Bearer <token>")
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "Invalid token", err.Error())
		default:
			writeInternalError(w, err)
		}
	})
}

func bodyLimitMiddleware(limit int64, next http.Handler) http.Handler {
	if limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(timeout time.Duration, next http.Handler) http.Handler {
	if timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func metricsMiddleware(m MetricsExporter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// The mux stores the matched pattern on r.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.RequestServed(path, rec.status)
	})
}

func loggingMiddleware(accessLogger func() *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		requestID := requestIDFromContext(r.Context())
		accessLogger().Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
			zap.String("request_id", requestID),
		)
	})
}

func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "Internal error", "unexpected server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = generateRequestID()
		}
		ctx := r.Context()
		ctx = contextWithRequestID(ctx, requestID)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
