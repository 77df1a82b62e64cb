// Package config resolves the process configuration once at startup from
// layered sources: built-in defaults derived from OS-specific directories,
// an optional configuration file (Lua or YAML) and GOOD_BASE_ environment
// variables, in increasing order of precedence. The merged result is
// validated and exposed as an immutable Setup through a Loader, which can
// re-run the whole resolution on demand.
package config
