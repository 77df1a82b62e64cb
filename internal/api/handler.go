package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/goodbase/goodbase/internal/command"
	"github.com/goodbase/goodbase/internal/config"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler exposes the HTTP side of the command registry.
type Handler struct {
	commands *command.Registry
	setup    func() *config.Setup

	logger  func() *zap.Logger
	metrics command.Recorder
	clock   func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithCommandLogger sets the audit logger passed to executed commands. It
// is called once per request.
func WithCommandLogger(logger func() *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithCommandMetrics counts commands executed over HTTP.
func WithCommandMetrics(recorder command.Recorder) HandlerOption {
	return func(h *Handler) {
		h.metrics = recorder
	}
}

// NewHandler constructs a Handler running commands from registry against
// the setup returned by setup at request time.
func NewHandler(registry *command.Registry, setup func() *config.Setup, opts ...HandlerOption) *Handler {
	h := &Handler{
		commands: registry,
		setup:    setup,
		logger:   zap.NewNop,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHelp(w http.ResponseWriter, r *http.Request) {
	_ = r
	cmds := h.commands.List(command.SurfaceHTTP)
	resp := helpResponse{
		Commands: make([]commandHelp, 0, len(cmds)),
		Headers:  map[string]string{"authorization": "Bearer <token>"},
	}
	for _, cmd := range cmds {
		resp.Commands = append(resp.Commands, commandHelp{
			Endpoint:    "/api/" + cmd.Name,
			Description: cmd.Description,
			Body:        cmd.Args,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("command")
	args, err := decodeArgs(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	env := &command.Env{
		Surface: command.SurfaceHTTP,
		Setup:   h.setup,
		Logger:  h.logger,
		Metrics: h.metrics,
	}
	ctx := r.Context()
	result, err := h.commands.Execute(ctx, env, name, args)
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		writeError(w, http.StatusRequestTimeout, "Request timeout", "the command did not finish in time")
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, command.ErrUnknownCommand), errors.Is(err, command.ErrNotAvailable):
			writeError(w, http.StatusNotFound, "Unknown command", err.Error(), "GET /api/help lists the available commands")
		case errors.Is(err, command.ErrUsage), errors.Is(err, command.ErrKeyNotFound):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		default:
			writeError(w, http.StatusBadRequest, "Command failed", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Success: true, Data: result})
}

// decodeArgs reads a JSON object of arguments. An empty body means no
// arguments; scalar values are rendered the way the shell would read them.
func decodeArgs(body io.Reader) (command.Args, error) {
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return command.Args{}, nil
		}
		return nil, err
	}

	args := make(command.Args, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			args[key] = v
		case bool:
			args[key] = strconv.FormatBool(v)
		case float64:
			args[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			args[key] = string(encoded)
		}
	}
	return args, nil
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type commandHelp struct {
	Endpoint    string            `json:"endpoint"`
	Description string            `json:"description"`
	Body        map[string]string `json:"body"`
}

type helpResponse struct {
	Commands []commandHelp     `json:"commands"`
	Headers  map[string]string `json:"headers"`
}

type commandResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
