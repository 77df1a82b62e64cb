package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedOS is returned when no directory convention exists for the running OS.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrConfigNotFound is returned by a file source when its configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrSourceLoad is returned when a source fails to produce a usable partial configuration.
	ErrSourceLoad = errors.New("configuration source failed to load")
	// ErrSourceTimeout is returned when a configuration file does not finish evaluating in time.
	ErrSourceTimeout = errors.New("configuration source timed out")
	// ErrMalformedConfig is returned when a source yields a value that is not shaped like a configuration.
	ErrMalformedConfig = errors.New("configuration is malformed")
	// ErrCoercion is returned when a raw value cannot be converted to its field type.
	ErrCoercion = errors.New("cannot coerce value")
	// ErrInvalidConfig is returned when validation reports at least one fatal problem.
	ErrInvalidConfig = errors.New("configuration is invalid")
)

// SourceError attributes a load failure to a named source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ProblemsError carries the validation problems that stopped a resolution.
type ProblemsError struct {
	Problems Problems
}

func (e *ProblemsError) Error() string {
	fatal := e.Problems.Fatal()
	msgs := make([]string, 0, len(fatal))
	for _, p := range fatal {
		msgs = append(msgs, p.String())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func (e *ProblemsError) Unwrap() error {
	return ErrInvalidConfig
}
