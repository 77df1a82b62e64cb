// Package shell runs the interactive good-base prompt on top of the
// command registry.
package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/goodbase/goodbase/internal/command"
	"github.com/goodbase/goodbase/internal/config"
)

const (
	ansiReset    = "\x1b[0m"
	ansiBoldCyan = "\x1b[1;36m"
	ansiRed      = "\x1b[31m"
)

// Shell reads command lines and runs them through a registry on the CLI
// surface.
type Shell struct {
	registry *command.Registry
	env      *command.Env
	history  *History
	logger   *zap.Logger
	plain    bool

	in  io.Reader
	out io.Writer
}

// Option configures a Shell.
type Option func(*Shell)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Shell) {
		s.in = in
		s.out = out
	}
}

// WithHistory sets the line history.
func WithHistory(h *History) Option {
	return func(s *Shell) {
		s.history = h
	}
}

// WithPlainOutput disables colors regardless of cli.enableColors.
func WithPlainOutput() Option {
	return func(s *Shell) {
		s.plain = true
	}
}

// WithLogger sets the logger for shell level failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Shell) {
		s.logger = logger
	}
}

// New creates a shell running commands from registry with env. The env
// surface is forced to the CLI.
func New(registry *command.Registry, env *command.Env, opts ...Option) *Shell {
	env.Surface = command.SurfaceCLI
	s := &Shell{
		registry: registry,
		env:      env,
		logger:   zap.NewNop(),
		in:       os.Stdin,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = NewHistory(s.settings().HistorySize)
	}
	return s
}

// HistoryFor opens the history described by cfg: file backed when history
// is persistent and a file is configured, in memory otherwise.
func HistoryFor(cfg config.CLIConfig) (*History, error) {
	if !cfg.PersistentHistory || cfg.HistoryFile == "" {
		return NewHistory(cfg.HistorySize), nil
	}
	return OpenHistory(cfg.HistoryFile, cfg.HistorySize)
}

// Run reads lines until exit, end of input or ctx is done. On a terminal
// the line editor offers history through the arrow keys.
func (s *Shell) Run(ctx context.Context) error {
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return s.runTerminal(ctx, f)
	}
	return s.runLines(ctx)
}

func (s *Shell) runLines(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, s.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if s.handle(ctx, s.out, scanner.Text()) || ctx.Err() != nil {
			return nil
		}
	}
}

func (s *Shell) runTerminal(ctx context.Context, f *os.File) error {
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, state)
	}()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, s.out}, s.prompt())
	t.History = s.history

	for {
		t.SetPrompt(s.prompt())
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(t)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		if s.handle(ctx, t, line) || ctx.Err() != nil {
			return nil
		}
	}
}

// handle runs one input line and reports whether the shell should stop.
func (s *Shell) handle(ctx context.Context, out io.Writer, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	s.history.Add(line)

	name, tokens := command.Split(line)
	switch name {
	case "exit", "quit":
		fmt.Fprintln(out, "Goodbye!")
		return true
	case "help":
		s.printHelp(out)
		return false
	}

	if err := s.exec(ctx, out, name, tokens); err != nil {
		if errors.Is(err, command.ErrUnknownCommand) {
			err = fmt.Errorf("%w; use 'help' for available commands", err)
		}
		s.printError(out, err)
	}
	return false
}

// Exec runs a single command and prints its result.
func (s *Shell) Exec(ctx context.Context, name string, tokens []string) error {
	return s.exec(ctx, s.out, strings.ToLower(name), tokens)
}

// Login starts an auth session with token, as "auth --key" would.
func (s *Shell) Login(ctx context.Context, token string) error {
	_, err := s.registry.Execute(ctx, s.env, "auth", command.Args{"key": token})
	return err
}

func (s *Shell) exec(ctx context.Context, out io.Writer, name string, tokens []string) error {
	if err := s.authorize(name); err != nil {
		return err
	}
	result, err := s.registry.Execute(ctx, s.env, name, command.Parse(tokens))
	if err != nil {
		return err
	}
	s.printResult(out, result)
	return nil
}

// authorize requires a live auth session for every command but auth
// itself while auth.required is set.
func (s *Shell) authorize(name string) error {
	if name == "auth" || s.env.Setup == nil {
		return nil
	}
	setup := s.env.Setup()
	if setup == nil || !setup.Config.Auth.Required {
		return nil
	}
	if s.env.Session != nil {
		if _, ok := s.env.Session.Token(); ok {
			return nil
		}
	}
	return errors.New("authentication required; run auth --key <token>")
}

func (s *Shell) printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nUse the up and down arrows to navigate command history")
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "==================")
	fmt.Fprintf(out, "%-20s - %s\n", "help", "Show this help")
	fmt.Fprintf(out, "%-20s - %s\n", "exit", "Leave the shell")
	for _, cmd := range s.registry.List(command.SurfaceCLI) {
		fmt.Fprintf(out, "%-20s - %s\n", cmd.Name, cmd.Description)
		taken := map[byte]bool{}
		for _, arg := range cmd.ArgNames() {
			if !taken[arg[0]] {
				taken[arg[0]] = true
				fmt.Fprintf(out, "    -%c or --%s <%s>\n", arg[0], arg, cmd.Args[arg])
				continue
			}
			fmt.Fprintf(out, "    --%s <%s>\n", arg, cmd.Args[arg])
		}
	}
	fmt.Fprintln(out)
}

func (s *Shell) printResult(out io.Writer, result any) {
	if text, ok := result.(string); ok {
		fmt.Fprintln(out, text)
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.printError(out, fmt.Errorf("render result: %w", err))
		return
	}
	data = pretty.Pretty(data)
	if s.colors() {
		data = pretty.Color(data, pretty.TerminalStyle)
	}
	_, _ = out.Write(data)
}

func (s *Shell) printError(out io.Writer, err error) {
	s.logger.Debug("shell command failed", zap.Error(err))
	fmt.Fprintln(out, s.paint(ansiRed, "Error: "+err.Error()))
}

func (s *Shell) prompt() string {
	return s.paint(ansiBoldCyan, s.settings().Prompt)
}

func (s *Shell) paint(code, text string) string {
	if !s.colors() {
		return text
	}
	return code + text + ansiReset
}

func (s *Shell) colors() bool {
	return !s.plain && s.settings().EnableColors
}

func (s *Shell) settings() config.CLIConfig {
	if s.env.Setup != nil {
		if setup := s.env.Setup(); setup != nil {
			return setup.Config.CLI
		}
	}
	return config.CLIConfig{Prompt: "good-base-> ", HistorySize: 1000}
}
