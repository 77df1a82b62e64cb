// Package application wires a resolved good-base configuration into the
// running process: auth token store, command registry, HTTP server and
// interactive shell. It keeps the main package focused on CLI parsing.
package application
