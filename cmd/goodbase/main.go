package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/goodbase/goodbase/internal/application"
	"github.com/goodbase/goodbase/internal/config"
	"github.com/goodbase/goodbase/internal/logging"
	"github.com/goodbase/goodbase/internal/metrics"
)

var signalNotify = signal.Notify

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("goodbase", "good-base - layered configuration, HTTP API and interactive shell")
	kingpinApp.UsageWriter(stdout)
	kingpinApp.ErrorWriter(stderr)
	kingpinApp.Interspersed(false)

	home := kingpinApp.Flag("home", "Base directory, takes precedence over "+config.HomeVar).String()
	format := kingpinApp.Flag("format", "Configuration file format").Default("lua").Enum("lua", "yaml", "yml")
	tee := kingpinApp.Flag("tee", "Also write logs to stdout").Bool()

	serveCmd := kingpinApp.Command("serve", "Serve the HTTP API").Default()
	shellCmd := kingpinApp.Command("shell", "Start the interactive shell")
	shellServe := shellCmd.Flag("serve", "Serve the HTTP API while the shell runs").Bool()
	runCmd := kingpinApp.Command("run", "Run a single command and exit")
	runToken := runCmd.Flag("token", "Auth token used when auth is required").String()
	runName := runCmd.Arg("command", "Command name").Required().String()
	runArgs := runCmd.Arg("args", "Command arguments").Strings()
	configCmd := kingpinApp.Command("config", "Inspect the configuration")
	configShow := configCmd.Command("show", "Print the resolved configuration as YAML").Default()
	configValidate := configCmd.Command("validate", "Resolve and validate the configuration")
	configPath := configCmd.Command("path", "Print the configuration file and directories")
	configInit := configCmd.Command("init", "Write the example configuration file if none exists")

	selected, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "goodbase: %v\n", err)
		return 2
	}

	bootstrap, err := logging.NewBootstrap()
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = bootstrap.Sync()
	}()

	fileLoader, err := config.FileLoaderFor(*format)
	if err != nil {
		fmt.Fprintf(stderr, "goodbase: %v\n", err)
		return 2
	}
	env := config.ProcessEnvironment()
	if *home != "" {
		env = withHome(env, *home)
	}

	if selected == configInit.FullCommand() {
		return initConfig(stdout, stderr, env, fileLoader)
	}

	m := metrics.New()
	loader := config.NewLoader(config.AppName,
		config.WithEnvironment(env),
		config.WithFileLoader(fileLoader),
		config.WithLogger(bootstrap),
		config.WithMetrics(m),
	)
	setup, err := loader.Load()

	if selected == configValidate.FullCommand() {
		return validateConfig(stdout, stderr, setup, err)
	}
	if err != nil {
		reportLoadError(stderr, err)
		return 1
	}

	switch selected {
	case configShow.FullCommand():
		data, err := setup.Config.YAML()
		if err != nil {
			fmt.Fprintf(stderr, "goodbase: %v\n", err)
			return 1
		}
		_, _ = stdout.Write(data)
		return 0
	case configPath.FullCommand():
		printPaths(stdout, setup)
		return 0
	}

	if setup.FirstRun {
		fmt.Fprintf(stdout, "Created example configuration at %s\nReview it and run goodbase again.\n", setup.ConfigFile)
		return 0
	}

	logger, level, err := logging.New(setup.Config.Logging, *tee && logging.IsTerminal(os.Stdout))
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := notifyContext(context.Background(), logger)
	defer stop()

	app, err := application.New(ctx, loader, logger, m, application.WithLogLevel(level))
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return 1
	}
	defer func() {
		_ = app.Close()
	}()

	switch selected {
	case serveCmd.FullCommand():
		err = app.Serve(ctx)
	case shellCmd.FullCommand():
		fmt.Fprintln(stdout, "good-base CLI - Type 'exit' to quit - Type 'help' for commands")
		sh := app.Shell(stdin, stdout)
		if *shellServe {
			err = app.Run(ctx, sh)
		} else {
			err = sh.Run(ctx)
		}
	case runCmd.FullCommand():
		sh := app.Shell(stdin, stdout)
		if *runToken != "" {
			err = sh.Login(ctx, *runToken)
		}
		if err == nil {
			err = sh.Exec(ctx, *runName, *runArgs)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "goodbase: %v\n", err)
		return 1
	}
	return 0
}

// withHome makes env report home as the base directory override.
func withHome(env config.Environment, home string) config.Environment {
	lookup := env.Lookup
	env.Lookup = func(key string) (string, bool) {
		if key == config.HomeVar {
			return home, true
		}
		return lookup(key)
	}
	return env
}

func initConfig(stdout, stderr io.Writer, env config.Environment, loader config.FileLoader) int {
	base, err := config.ResolveBaseDirectory(config.AppName, env)
	if err == nil {
		var dirs config.Directories
		if dirs, err = config.DeriveSubdirectories(base); err == nil {
			var path string
			if path, err = config.WriteExample(loader, dirs); err == nil {
				fmt.Fprintln(stdout, path)
				return 0
			}
		}
	}
	fmt.Fprintf(stderr, "goodbase: %v\n", err)
	return 1
}

func validateConfig(stdout, stderr io.Writer, setup *config.Setup, err error) int {
	if err != nil {
		reportLoadError(stderr, err)
		return 1
	}
	for _, p := range setup.Problems {
		fmt.Fprintf(stdout, "%s %s\n", p.Severity, p)
	}
	fmt.Fprintf(stdout, "configuration is valid (%s)\n", setup.ConfigFile)
	return 0
}

func reportLoadError(w io.Writer, err error) {
	var problems *config.ProblemsError
	if errors.As(err, &problems) {
		fmt.Fprintln(w, "goodbase: invalid configuration")
		for _, p := range problems.Problems {
			fmt.Fprintf(w, "  %s %s\n", p.Severity, p)
		}
		return
	}
	fmt.Fprintf(w, "goodbase: %v\n", err)
}

func printPaths(w io.Writer, setup *config.Setup) {
	dirs := setup.Directories
	fmt.Fprintf(w, "config file: %s\n", setup.ConfigFile)
	fmt.Fprintf(w, "base:        %s\n", dirs.Base)
	fmt.Fprintf(w, "config:      %s\n", dirs.Config)
	fmt.Fprintf(w, "data:        %s\n", dirs.Data)
	fmt.Fprintf(w, "logs:        %s\n", dirs.Logs)
	fmt.Fprintf(w, "cache:       %s\n", dirs.Cache)
	fmt.Fprintf(w, "backups:     %s\n", dirs.Backups)
	fmt.Fprintf(w, "databases:   %s\n", dirs.Databases)
}

// notifyContext cancels the returned context on SIGINT or SIGTERM.
func notifyContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-quit:
			logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
