// Package command holds the commands shared by the interactive shell and
// the HTTP API, and the registry that dispatches them.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/goodbase/goodbase/internal/auth"
	"github.com/goodbase/goodbase/internal/config"
)

// Surface names where a command is invoked from.
type Surface string

const (
	SurfaceCLI  Surface = "cli"
	SurfaceHTTP Surface = "http"
)

var (
	// ErrUnknownCommand is returned for names not in the registry.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotAvailable is returned when a command is not offered on a surface.
	ErrNotAvailable = errors.New("command not available")
	// ErrUsage is returned when arguments do not form a valid invocation.
	ErrUsage = errors.New("invalid usage")
)

// Args are parsed command arguments. Flags given without a value hold "true".
type Args map[string]string

// Flag reports whether a boolean flag is set.
func (a Args) Flag(name string) bool {
	v, ok := a[name]
	return ok && v != "false"
}

// Tokens manages stored auth tokens.
type Tokens interface {
	Add(ctx context.Context, token string) error
	Remove(ctx context.Context, token string) (bool, error)
	Has(ctx context.Context, token string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// Recorder counts executed commands.
type Recorder interface {
	CommandRun(command, surface string)
}

// Env is what a command may touch while it runs. Setup and Logger are
// read on every execution so a reload takes effect.
type Env struct {
	Surface Surface
	Setup   func() *config.Setup
	Reload  func() (*config.Setup, error)
	Tokens  Tokens
	Session *auth.Session
	Logger  func() *zap.Logger
	Metrics Recorder
}

// Command describes one command.
type Command struct {
	Name        string
	Args        map[string]string
	Description string
	OnCLI       bool
	OnHTTP      bool
	Run         func(ctx context.Context, env *Env, args Args) (any, error)
}

// Available reports whether the command is offered on surface.
func (c *Command) Available(surface Surface) bool {
	switch surface {
	case SurfaceCLI:
		return c.OnCLI
	case SurfaceHTTP:
		return c.OnHTTP
	default:
		return false
	}
}

// ArgNames returns the argument names in sorted order.
func (c *Command) ArgNames() []string {
	names := make([]string, 0, len(c.Args))
	for name := range c.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry maps names to commands.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry creates a registry holding cmds.
func NewRegistry(cmds ...*Command) *Registry {
	r := &Registry{commands: make(map[string]*Command, len(cmds))}
	for _, cmd := range cmds {
		r.Register(cmd)
	}
	return r
}

// Register adds or replaces a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
}

// Lookup returns the named command.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// List returns the commands offered on surface sorted by name.
func (r *Registry) List(surface Surface) []*Command {
	var out []*Command
	for _, cmd := range r.commands {
		if cmd.Available(surface) {
			out = append(out, cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named command on env.Surface. Single letter arguments
// are expanded to the command's argument of that initial first.
func (r *Registry) Execute(ctx context.Context, env *Env, name string, args Args) (any, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if !cmd.Available(env.Surface) {
		return nil, fmt.Errorf("%w: %q on %s", ErrNotAvailable, name, env.Surface)
	}
	args = ExpandShort(cmd, args)

	logger := zap.NewNop()
	if env.Logger != nil {
		if l := env.Logger(); l != nil {
			logger = l
		}
	}
	if env.Metrics != nil {
		env.Metrics.CommandRun(name, string(env.Surface))
	}

	start := time.Now()
	result, err := cmd.Run(ctx, env, args)
	fields := []zap.Field{
		zap.String("command", name),
		zap.String("surface", string(env.Surface)),
		zap.Strings("args", sortedArgNames(args)),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.Info("command failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	logger.Info("command executed", fields...)
	return result, nil
}

// sortedArgNames lists argument names only; values may hold secrets.
func sortedArgNames(args Args) []string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
