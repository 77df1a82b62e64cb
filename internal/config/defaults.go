package config

import "path/filepath"

const historyFileName = ".good_history"

// Defaults returns the configuration every source layers on top of. All
// directory settings point into dirs; everything else is safe for local
// development.
func Defaults(dirs Directories) Config {
	return Config{
		Database: DatabaseConfig{
			DataDirectory:   dirs.Data,
			MaxFileSize:     100,
			EnableBackups:   true,
			BackupDirectory: dirs.Backups,
			BackupInterval:  24,
		},
		Databases: map[string]DatabaseConfig{},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           7777,
			EnableCORS:     true,
			CORSOrigins:    []string{"*"},
			RequestTimeout: 30,
			MaxBodySize:    10,
			RateLimitRPS:   25,
			RateLimitBurst: 50,
		},
		Auth: AuthConfig{
			Required:         false,
			DefaultToken:     "dev-token-12345",
			ValidationMethod: ValidationStatic,
		},
		Index: IndexConfig{
			DefaultLevel:          "match",
			OptimizationThreshold: 10000,
			AutoOptimize:          true,
			EnableCache:           true,
			MaxCacheSize:          50,
		},
		Logging: LoggingConfig{
			Level:                "info",
			EnableRequestLogging: true,
			LogDirectory:         dirs.Logs,
			MaxLogFileSize:       10,
			MaxLogFiles:          5,
		},
		CLI: CLIConfig{
			HistoryFile:        filepath.Join(dirs.Config, historyFileName),
			HistorySize:        1000,
			PersistentHistory:  true,
			EnableColors:       true,
			Prompt:             "good-base-> ",
			AuthTimeoutMinutes: 30,
		},
	}
}

// newDatabaseConfig seeds a named database from the database section, with
// its directories moved under the database's own subtree.
func newDatabaseConfig(base DatabaseConfig, dirs DatabaseDirectories) DatabaseConfig {
	db := base
	db.DataDirectory = dirs.Data
	db.BackupDirectory = dirs.Backups
	return db
}
