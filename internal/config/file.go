package config

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed examples/*
var examples embed.FS

// FileLoader reads one configuration file format.
type FileLoader interface {
	// Format names the format ("lua", "yaml").
	Format() string
	// FileName is the name of the file looked up in the config directory.
	FileName() string
	// Example is the commented example written on first run.
	Example() []byte
	// LoadFile parses path into a partial configuration.
	LoadFile(path string) (Partial, error)
}

// FileLoaderFor returns the loader of the named format.
func FileLoaderFor(format string) (FileLoader, error) {
	switch format {
	case "", "lua":
		return NewLuaLoader(), nil
	case "yaml", "yml":
		return NewYAMLLoader(), nil
	default:
		return nil, fmt.Errorf("unknown config file format %q", format)
	}
}

func exampleFile(name string) []byte {
	data, err := examples.ReadFile("examples/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded example %s: %v", name, err))
	}
	return data
}

// FileSource reads the configuration file from the config directory.
type FileSource struct {
	loader FileLoader
}

// NewFileSource creates the file source backed by loader.
func NewFileSource(loader FileLoader) *FileSource {
	return &FileSource{loader: loader}
}

func (s *FileSource) Name() string   { return "file:" + s.loader.Format() }
func (s *FileSource) Priority() int  { return FilePriority }
func (s *FileSource) Optional() bool { return true }

// Path returns the configuration file path for dirs.
func (s *FileSource) Path(dirs Directories) string {
	return filepath.Join(dirs.Config, s.loader.FileName())
}

// Load parses the configuration file. When the file does not exist the
// example is written in its place and ErrConfigNotFound is returned.
func (s *FileSource) Load(dirs Directories) (Partial, error) {
	path := s.Path(dirs)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: stat %s: %v", ErrSourceLoad, path, err)
		}
		if _, werr := WriteExample(s.loader, dirs); werr != nil {
			return nil, fmt.Errorf("%w: %s (writing example failed: %v)", ErrConfigNotFound, path, werr)
		}
		return nil, fmt.Errorf("%w: example written to %s", ErrConfigNotFound, path)
	}
	return s.loader.LoadFile(path)
}

// WriteExample writes the example file of loader into the config
// directory, creating the directory. An existing file is left untouched.
func WriteExample(loader FileLoader, dirs Directories) (string, error) {
	path := filepath.Join(dirs.Config, loader.FileName())
	if err := os.MkdirAll(dirs.Config, 0o755); err != nil {
		return path, fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return path, nil
		}
		return path, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(loader.Example()); err != nil {
		f.Close()
		return path, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// partialFrom checks that every section of a decoded document is a mapping.
func partialFrom(doc map[string]any) (Partial, error) {
	for name, section := range doc {
		if section == nil {
			continue
		}
		if _, ok := section.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: section %q is %T, not a mapping", ErrMalformedConfig, name, section)
		}
	}
	return Partial(doc), nil
}
