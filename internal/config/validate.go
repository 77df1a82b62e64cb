package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Severity classifies a validation problem.
type Severity string

const (
	// SeverityFatal problems make the configuration unusable.
	SeverityFatal Severity = "fatal"
	// SeverityWarning problems degrade a feature but do not stop startup.
	SeverityWarning Severity = "warning"
)

// Problem is a single validation finding.
type Problem struct {
	Path     string   `yaml:"path" json:"path"`
	Message  string   `yaml:"message" json:"message"`
	Severity Severity `yaml:"severity" json:"severity"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Path, p.Message)
}

// Problems is the list returned by Validate.
type Problems []Problem

// Fatal returns only the fatal problems.
func (ps Problems) Fatal() Problems {
	return ps.filter(SeverityFatal)
}

// Warnings returns only the warnings.
func (ps Problems) Warnings() Problems {
	return ps.filter(SeverityWarning)
}

// HasFatal reports whether any problem is fatal.
func (ps Problems) HasFatal() bool {
	return len(ps.Fatal()) > 0
}

func (ps Problems) filter(sev Severity) Problems {
	var out Problems
	for _, p := range ps {
		if p.Severity == sev {
			out = append(out, p)
		}
	}
	return out
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg against structural and cross-field rules. It never
// fails and never fixes values; the caller decides what to do with the
// returned problems.
func Validate(cfg Config) Problems {
	var problems Problems

	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, Problem{
					Path:     fieldPath(fe.Namespace()),
					Message:  ruleMessage(fe),
					Severity: SeverityFatal,
				})
			}
		} else {
			problems = append(problems, Problem{Path: "config", Message: err.Error(), Severity: SeverityFatal})
		}
	}

	return append(problems, crossFieldProblems(cfg)...)
}

func crossFieldProblems(cfg Config) Problems {
	var problems Problems
	fatal := func(path, msg string) {
		problems = append(problems, Problem{Path: path, Message: msg, Severity: SeverityFatal})
	}
	warn := func(path, msg string) {
		problems = append(problems, Problem{Path: path, Message: msg, Severity: SeverityWarning})
	}

	auth := cfg.Auth
	if auth.Required && auth.ValidationMethod == ValidationStatic && auth.DefaultToken == "" {
		fatal("auth.defaultToken", "token required for static validation when auth required")
	}
	if auth.ValidationMethod == ValidationJWT && auth.JWTSecret == "" {
		fatal("auth.jwtSecret", "secret required for jwt validation")
	}
	if auth.ValidationMethod == ValidationExternal && auth.ExternalEndpoint == "" {
		fatal("auth.externalEndpoint", "endpoint required for external validation")
	}

	logging := cfg.Logging
	if logging.EnableFileLogging && logging.LogDirectory == "" {
		warn("logging.logDirectory", "file logging enabled without a log directory; file logging is disabled")
	}
	if logging.EnableCommandLogging && logging.LogDirectory == "" {
		warn("logging.logDirectory", "command logging enabled without a log directory; command logging is disabled")
	}

	if cfg.CLI.PersistentHistory && cfg.CLI.HistoryFile == "" {
		warn("cli.historyFile", "persistent history enabled without a history file; history is kept in memory")
	}

	if cfg.Database.EnableBackups && cfg.Database.BackupDirectory == "" {
		warn("database.backupDirectory", "backups enabled without a backup directory")
	}
	for name, db := range cfg.Databases {
		if db.EnableBackups && db.BackupDirectory == "" {
			warn("databases."+name+".backupDirectory", "backups enabled without a backup directory")
		}
	}

	return problems
}

// fieldPath drops the root type from a validator namespace:
// "Config.databases[main].maxFileSize" -> "databases.main.maxFileSize".
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	rest = strings.ReplaceAll(rest, "[", ".")
	return strings.ReplaceAll(rest, "]", "")
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", strings.ReplaceAll(fe.Param(), " ", ", "), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}
