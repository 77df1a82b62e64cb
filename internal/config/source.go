package config

// Partial is a configuration tree in which every key is optional: section
// -> field -> value, and for databases, section -> name -> field -> value.
// A missing key means the source does not override that setting.
type Partial map[string]any

// Source provides one layer of configuration.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Priority orders sources; higher priorities are merged later and win.
	Priority() int
	// Optional sources may fail without aborting the resolution.
	Optional() bool
	// Load returns the partial configuration of this source for the
	// directories of the current resolution pass.
	Load(dirs Directories) (Partial, error)
}

// Source priorities of the built-in sources.
const (
	FilePriority = 2
	EnvPriority  = 3
)
