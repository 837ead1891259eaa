// Package config provides core configuration structures and utilities for the
// batch metadata repository. This module defines Fx providers for
// configuration-related components.
package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
// This allows other Fx components to depend only on the logging configuration.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Moray.System.Logging
}

// NewRepositoryMongoConfigProvider resolves the datastore entry used by the
// job repository into a concrete *MongoConfig.
func NewRepositoryMongoConfigProvider(cfg *Config) (*MongoConfig, error) {
	return cfg.RepositoryMongoConfig()
}

// Module provides configuration-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewRepositoryMongoConfigProvider),
)
