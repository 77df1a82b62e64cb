package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// AppName names the application directories.
	AppName = "good-base"

	// HomeVar overrides the whole base directory derivation when set.
	HomeVar = "GOOD_BASE_HOME"
	// ModeVar selects the development directory convention unless it equals "production".
	ModeVar = "GOOD_BASE_ENV"

	productionMode = "production"
)

// Environment is the view of the process the directory resolver and the
// environment source depend on.
type Environment struct {
	OS      string
	Lookup  func(key string) (string, bool)
	Environ func() []string
	HomeDir func() (string, error)
}

// ProcessEnvironment returns the environment of the running process.
func ProcessEnvironment() Environment {
	return Environment{
		OS:      runtime.GOOS,
		Lookup:  os.LookupEnv,
		Environ: os.Environ,
		HomeDir: os.UserHomeDir,
	}
}

// MapEnvironment returns an environment backed by a fixed set of variables
// for the given OS identity.
func MapEnvironment(goos string, vars map[string]string) Environment {
	return Environment{
		OS: goos,
		Lookup: func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		},
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		HomeDir: func() (string, error) {
			return "", fmt.Errorf("no home directory in map environment")
		},
	}
}

func (e Environment) get(key string) string {
	if e.Lookup == nil {
		return ""
	}
	v, _ := e.Lookup(key)
	return v
}

func (e Environment) home() string {
	if h := e.get("HOME"); h != "" {
		return h
	}
	if h := e.get("USERPROFILE"); h != "" {
		return h
	}
	if e.HomeDir != nil {
		if h, err := e.HomeDir(); err == nil && h != "" {
			return h
		}
	}
	return "."
}

// DatabaseDirectories are the fixed subdirectories of one named database.
type DatabaseDirectories struct {
	Base    string `yaml:"base" json:"base"`
	Data    string `yaml:"data" json:"data"`
	Cache   string `yaml:"cache" json:"cache"`
	Logs    string `yaml:"logs" json:"logs"`
	Backups string `yaml:"backups" json:"backups"`
}

// Directories are the absolute locations derived from the base directory.
type Directories struct {
	Base      string `yaml:"base" json:"base"`
	Config    string `yaml:"config" json:"config"`
	Data      string `yaml:"data" json:"data"`
	Logs      string `yaml:"logs" json:"logs"`
	Cache     string `yaml:"cache" json:"cache"`
	Backups   string `yaml:"backups" json:"backups"`
	Databases string `yaml:"databases" json:"databases"`
}

// Database returns the directories of the named database.
func (d Directories) Database(name string) DatabaseDirectories {
	base := filepath.Join(d.Databases, name)
	return DatabaseDirectories{
		Base:    base,
		Data:    filepath.Join(base, "data"),
		Cache:   filepath.Join(base, "cache"),
		Logs:    filepath.Join(base, "logs"),
		Backups: filepath.Join(base, "backups"),
	}
}

// AuthStore is the path of the auth token database.
func (d Directories) AuthStore() string {
	return filepath.Join(d.Base, "auth.db")
}

// ResolveBaseDirectory returns the application base directory: the HomeVar
// override, then ./tmp/<appName> outside production, then the OS convention.
func ResolveBaseDirectory(appName string, env Environment) (string, error) {
	if dir := env.get(HomeVar); dir != "" {
		return dir, nil
	}

	if env.get(ModeVar) != productionMode {
		return "./" + path.Join("tmp", appName), nil
	}

	home := env.home()
	switch env.OS {
	case "darwin":
		return path.Join(home, "Library", "Application Support", appName), nil
	case "linux":
		if xdg := env.get("XDG_DATA_HOME"); xdg != "" {
			return path.Join(xdg, appName), nil
		}
		return path.Join(home, ".local", "share", appName), nil
	case "windows":
		if appData := env.get("APPDATA"); appData != "" {
			return windowsJoin(appData, appName), nil
		}
		return windowsJoin(home, "AppData", "Roaming", appName), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOS, env.OS)
	}
}

func windowsJoin(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		if i > 0 {
			e = strings.TrimLeft(e, `\/`)
		}
		if i < len(elem)-1 {
			e = strings.TrimRight(e, `\/`)
		}
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, `\`)
}

// DeriveSubdirectories makes base absolute and appends the fixed subdirectories.
func DeriveSubdirectories(base string) (Directories, error) {
	abs, err := filepath.Abs(filepath.FromSlash(base))
	if err != nil {
		return Directories{}, fmt.Errorf("resolve base directory %q: %w", base, err)
	}
	return Directories{
		Base:      abs,
		Config:    filepath.Join(abs, "config"),
		Data:      filepath.Join(abs, "data"),
		Logs:      filepath.Join(abs, "logs"),
		Cache:     filepath.Join(abs, "cache"),
		Backups:   filepath.Join(abs, "backups"),
		Databases: filepath.Join(abs, "databases"),
	}, nil
}
