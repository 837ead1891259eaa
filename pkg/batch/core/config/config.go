package config

// Package config provides structures and utilities for managing application
// configuration loaded from YAML files and environment variables.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// MongoConfig holds MongoDB connection settings for a single datastore entry.
// It is bound from the datastore section via configbinder, so the yaml tags
// double as mapstructure tags.
type MongoConfig struct {
	URI                   string `yaml:"uri"`                     // Connection string, e.g. "mongodb://localhost:27017".
	Database              string `yaml:"database"`                // Database holding the batch metadata collections.
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"` // Timeout for establishing the initial connection.
	PingTimeoutSeconds    int    `yaml:"ping_timeout_seconds"`    // Timeout for the startup reachability check.
}

// RepositoryConfig holds logical dependency settings for the job repository.
type RepositoryConfig struct {
	// DatastoreRef is the name of the datastore entry used by the job repository (e.g., "metadata").
	DatastoreRef string `yaml:"datastore_ref"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// MorayConfig holds all configuration under the "moray" top-level key.
type MorayConfig struct {
	// Repository contains job repository wiring.
	Repository RepositoryConfig `yaml:"repository"`
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// DatastoreConfigs holds the raw per-datastore configuration maps, bound
	// to concrete structs on demand via configbinder.
	DatastoreConfigs map[string]interface{} `yaml:"datastore"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Moray MorayConfig `yaml:"moray"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a Config populated with defaults. YAML and environment
// variables are merged on top of these.
func NewConfig() *Config {
	return &Config{
		Moray: MorayConfig{
			Repository: RepositoryConfig{
				DatastoreRef: "metadata",
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			DatastoreConfigs: map[string]interface{}{
				"metadata": map[string]interface{}{
					"uri":      "mongodb://localhost:27017",
					"database": "batch",
				},
			},
		},
	}
}

// GlobalConfig is a pointer to the configuration instance shared across the application.
// It is expected to be set via fx.Supply or fx.Provide.
var GlobalConfig *Config
