package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodbase/goodbase/internal/auth"
	"github.com/goodbase/goodbase/internal/config"
)

// Builtins returns the standard command set.
func Builtins() []*Command {
	return []*Command{Echo(), Config(), Auth()}
}

// Echo returns its text argument.
func Echo() *Command {
	return &Command{
		Name:        "echo",
		Args:        map[string]string{"text": "text to echo back"},
		Description: "Echo the given text",
		OnCLI:       true,
		OnHTTP:      true,
		Run: func(_ context.Context, _ *Env, args Args) (any, error) {
			text, ok := args["text"]
			if !ok {
				return nil, fmt.Errorf("%w: echo needs --text", ErrUsage)
			}
			return map[string]string{"text": text}, nil
		},
	}
}

// Config inspects, validates and reloads the resolved configuration. Over
// HTTP only the redacted view is offered.
func Config() *Command {
	return &Command{
		Name: "config",
		Args: map[string]string{
			"key":      "dot path of a single setting",
			"validate": "validate the active configuration",
			"reload":   "resolve the configuration again",
			"path":     "show the configuration file and directories",
			"sources":  "show what each source contributed",
		},
		Description: "Show or reload the configuration",
		OnCLI:       true,
		OnHTTP:      true,
		Run:         runConfig,
	}
}

func runConfig(_ context.Context, env *Env, args Args) (any, error) {
	setup := env.Setup()
	if setup == nil {
		return nil, errors.New("configuration not loaded")
	}

	action := ""
	for _, name := range []string{"validate", "reload", "path", "sources"} {
		if args.Flag(name) {
			action = name
			break
		}
	}
	if action != "" && env.Surface != SurfaceCLI {
		return nil, fmt.Errorf("%w: config --%s over %s", ErrNotAvailable, action, env.Surface)
	}

	switch action {
	case "validate":
		problems := config.Validate(setup.Config)
		return map[string]any{"valid": !problems.HasFatal(), "problems": problems}, nil
	case "reload":
		if env.Reload == nil {
			return nil, fmt.Errorf("%w: reload", ErrNotAvailable)
		}
		next, err := env.Reload()
		if err != nil {
			return nil, err
		}
		return map[string]any{"reloaded": true, "configFile": next.ConfigFile, "problems": next.Problems}, nil
	case "path":
		return map[string]any{"configFile": setup.ConfigFile, "directories": setup.Directories}, nil
	case "sources":
		return setup.Sources, nil
	}

	data, err := ConfigJSON(setup.Config, env.Surface != SurfaceCLI)
	if err != nil {
		return nil, err
	}
	key := args["key"]
	value, err := ConfigValue(data, key)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return value, nil
	}
	return map[string]any{"key": key, "value": value}, nil
}

// Auth manages stored tokens and the shell's auth session.
func Auth() *Command {
	return &Command{
		Name: "auth",
		Args: map[string]string{
			"key":    "start a session with this token",
			"close":  "end the current session",
			"status": "show the current session",
			"create": "generate and store a new token",
			"add":    "store the given token",
			"remove": "delete the given token",
			"list":   "list stored tokens",
		},
		Description: "Manage auth tokens and the shell session",
		OnCLI:       true,
		Run:         runAuth,
	}
}

func runAuth(ctx context.Context, env *Env, args Args) (any, error) {
	switch {
	case args.Flag("close"):
		if env.Session != nil {
			env.Session.Clear()
		}
		return "auth cleared", nil

	case args.Flag("status"):
		return sessionStatus(env.Session), nil

	case args["key"] != "":
		if env.Session == nil {
			return nil, fmt.Errorf("%w: no session on %s", ErrNotAvailable, env.Surface)
		}
		token := args["key"]
		if !knownToken(ctx, env, token) {
			return nil, auth.ErrInvalidToken
		}
		env.Session.Set(token)
		return sessionStatus(env.Session), nil
	}

	if env.Tokens == nil {
		return nil, fmt.Errorf("%w: token store unavailable", ErrNotAvailable)
	}
	switch {
	case args.Flag("create"):
		token, err := auth.GenerateToken()
		if err != nil {
			return nil, err
		}
		if err := env.Tokens.Add(ctx, token); err != nil {
			return nil, err
		}
		return map[string]string{"token": token}, nil

	case args["add"] != "" && args["add"] != "true":
		if err := env.Tokens.Add(ctx, args["add"]); err != nil {
			return nil, err
		}
		return map[string]string{"token": args["add"]}, nil

	case args["remove"] != "" && args["remove"] != "true":
		removed, err := env.Tokens.Remove(ctx, args["remove"])
		if err != nil {
			return nil, err
		}
		if !removed {
			return nil, fmt.Errorf("token %q not found", args["remove"])
		}
		return map[string]string{"removed": args["remove"]}, nil

	case args.Flag("list"):
		tokens, err := env.Tokens.List(ctx)
		if err != nil {
			return nil, err
		}
		if tokens == nil {
			tokens = []string{}
		}
		return tokens, nil
	}

	return nil, fmt.Errorf("%w: auth needs one of --key, --close, --status, --create, --add, --remove, --list", ErrUsage)
}

func knownToken(ctx context.Context, env *Env, token string) bool {
	if setup := env.Setup(); setup != nil && setup.Config.Auth.DefaultToken != "" && setup.Config.Auth.DefaultToken == token {
		return true
	}
	if env.Tokens == nil {
		return false
	}
	ok, err := env.Tokens.Has(ctx, token)
	return err == nil && ok
}

func sessionStatus(s *auth.Session) map[string]any {
	if s == nil {
		return map[string]any{"active": false}
	}
	left, ok := s.Remaining()
	if !ok {
		return map[string]any{"active": false}
	}
	status := map[string]any{"active": true, "expires": left > 0}
	if left > 0 {
		status["remainingMinutes"] = int(left.Minutes())
	}
	return status
}
