package config

import (
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Auth validation methods.
const (
	ValidationStatic   = "static"
	ValidationJWT      = "jwt"
	ValidationExternal = "external"
)

// DatabaseConfig holds storage settings for the default database and for
// each named entry of Config.Databases.
type DatabaseConfig struct {
	DataDirectory   string `yaml:"dataDirectory" json:"dataDirectory" validate:"required"`
	MaxFileSize     int    `yaml:"maxFileSize" json:"maxFileSize" validate:"gt=0"`
	EnableBackups   bool   `yaml:"enableBackups" json:"enableBackups"`
	BackupDirectory string `yaml:"backupDirectory" json:"backupDirectory"`
	BackupInterval  int    `yaml:"backupInterval" json:"backupInterval" validate:"gte=0"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host" json:"host" validate:"required"`
	Port           int      `yaml:"port" json:"port" validate:"min=1,max=65535"`
	EnableCORS     bool     `yaml:"enableCors" json:"enableCors"`
	CORSOrigins    []string `yaml:"corsOrigins" json:"corsOrigins" validate:"dive,required"`
	RequestTimeout int      `yaml:"requestTimeout" json:"requestTimeout" validate:"gt=0"`
	MaxBodySize    int      `yaml:"maxBodySize" json:"maxBodySize" validate:"gte=0"`
	RateLimitRPS   float64  `yaml:"rateLimitRps" json:"rateLimitRps" validate:"gte=0"`
	RateLimitBurst int      `yaml:"rateLimitBurst" json:"rateLimitBurst" validate:"gte=0"`
}

// AuthConfig holds token validation settings.
type AuthConfig struct {
	Required         bool   `yaml:"required" json:"required"`
	DefaultToken     string `yaml:"defaultToken" json:"defaultToken"`
	ValidationMethod string `yaml:"validationMethod" json:"validationMethod" validate:"oneof=static jwt external"`
	JWTSecret        string `yaml:"jwtSecret" json:"jwtSecret"`
	ExternalEndpoint string `yaml:"externalEndpoint" json:"externalEndpoint"`
}

// IndexConfig holds indexing defaults.
type IndexConfig struct {
	DefaultLevel          string `yaml:"defaultLevel" json:"defaultLevel" validate:"oneof=match traverse full"`
	OptimizationThreshold int    `yaml:"optimizationThreshold" json:"optimizationThreshold" validate:"gt=0"`
	AutoOptimize          bool   `yaml:"autoOptimize" json:"autoOptimize"`
	EnableCache           bool   `yaml:"enableCache" json:"enableCache"`
	MaxCacheSize          int    `yaml:"maxCacheSize" json:"maxCacheSize" validate:"gt=0"`
}

// LoggingConfig holds log level and log file settings.
type LoggingConfig struct {
	Level                string `yaml:"level" json:"level" validate:"oneof=debug info warn error none"`
	EnableFileLogging    bool   `yaml:"enableFileLogging" json:"enableFileLogging"`
	EnableCommandLogging bool   `yaml:"enableCommandLogging" json:"enableCommandLogging"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging" json:"enableRequestLogging"`
	LogDirectory         string `yaml:"logDirectory" json:"logDirectory"`
	MaxLogFileSize       int    `yaml:"maxLogFileSize" json:"maxLogFileSize" validate:"gt=0"`
	MaxLogFiles          int    `yaml:"maxLogFiles" json:"maxLogFiles" validate:"gt=0"`
}

// CLIConfig holds interactive shell settings.
type CLIConfig struct {
	HistoryFile        string `yaml:"historyFile" json:"historyFile"`
	HistorySize        int    `yaml:"historySize" json:"historySize" validate:"gt=0"`
	PersistentHistory  bool   `yaml:"persistentHistory" json:"persistentHistory"`
	EnableColors       bool   `yaml:"enableColors" json:"enableColors"`
	Prompt             string `yaml:"prompt" json:"prompt" validate:"required"`
	AuthTimeoutMinutes int    `yaml:"authTimeoutMinutes" json:"authTimeoutMinutes" validate:"gte=0"`
}

// Config is the fully resolved configuration tree.
type Config struct {
	Database  DatabaseConfig            `yaml:"database" json:"database"`
	Databases map[string]DatabaseConfig `yaml:"databases" json:"databases" validate:"dive"`
	Server    ServerConfig              `yaml:"server" json:"server"`
	Auth      AuthConfig                `yaml:"auth" json:"auth"`
	Index     IndexConfig               `yaml:"index" json:"index"`
	Logging   LoggingConfig             `yaml:"logging" json:"logging"`
	CLI       CLIConfig                 `yaml:"cli" json:"cli"`
}

// Clone returns a deep copy so a Setup never shares mutable state with a
// configuration under construction.
func (c Config) Clone() Config {
	out := c
	out.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	if c.Databases != nil {
		out.Databases = maps.Clone(c.Databases)
	}
	return out
}

// SourceStatus records what one source contributed to a resolution pass.
type SourceStatus struct {
	Name     string `yaml:"name" json:"name"`
	Priority int    `yaml:"priority" json:"priority"`
	Applied  bool   `yaml:"applied" json:"applied"`
	Err      string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Setup pairs a finalized Config with the Directories it was resolved
// against. A Setup is never modified after the Loader publishes it.
type Setup struct {
	Config      Config         `yaml:"config" json:"config"`
	Directories Directories    `yaml:"directories" json:"directories"`
	ConfigFile  string         `yaml:"configFile" json:"configFile"`
	FirstRun    bool           `yaml:"firstRun" json:"firstRun"`
	Problems    Problems       `yaml:"problems,omitempty" json:"problems,omitempty"`
	Sources     []SourceStatus `yaml:"sources" json:"sources"`
}

// DatabaseDirectories returns the effective directories of a named
// database, honouring its dataDirectory and backupDirectory settings.
func (s *Setup) DatabaseDirectories(name string) (DatabaseDirectories, bool) {
	db, ok := s.Config.Databases[name]
	if !ok {
		return DatabaseDirectories{}, false
	}
	dirs := s.Directories.Database(name)
	if db.DataDirectory != "" {
		dirs.Data = db.DataDirectory
	}
	if db.BackupDirectory != "" {
		dirs.Backups = db.BackupDirectory
	}
	return dirs, true
}

// YAML renders the configuration tree.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
