package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/moray/pkg/batch/core/config"
)

const testYAML = `
moray:
  repository:
    datastore_ref: metadata
  system:
    timezone: Asia/Tokyo
    logging:
      level: DEBUG
  datastore:
    metadata:
      uri: mongodb://mongo:27017
      database: batch_meta
      connect_timeout_seconds: 20
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig("", config.EmbeddedConfig(""))
	require.NoError(t, err)

	assert.Equal(t, "metadata", cfg.Moray.Repository.DatastoreRef)
	assert.Equal(t, "UTC", cfg.Moray.System.Timezone)
	assert.Equal(t, string(config.LogLevelInfo), cfg.Moray.System.Logging.Level)

	mongoCfg, err := cfg.RepositoryMongoConfig()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", mongoCfg.URI)
	assert.Equal(t, "batch", mongoCfg.Database)
	assert.Equal(t, 10, mongoCfg.ConnectTimeoutSeconds)
	assert.Equal(t, 5, mongoCfg.PingTimeoutSeconds)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("", config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", cfg.Moray.System.Timezone)
	assert.Equal(t, "DEBUG", cfg.Moray.System.Logging.Level)

	mongoCfg, err := cfg.RepositoryMongoConfig()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://mongo:27017", mongoCfg.URI)
	assert.Equal(t, "batch_meta", mongoCfg.Database)
	assert.Equal(t, 20, mongoCfg.ConnectTimeoutSeconds)
	// Not set in YAML, so the binding default applies.
	assert.Equal(t, 5, mongoCfg.PingTimeoutSeconds)
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	t.Setenv("MORAY_SYSTEM_LOGGING_LEVEL", "WARN")
	t.Setenv("MORAY_DATASTORE_METADATA_URI", "mongodb://env-host:27017")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.Moray.System.Logging.Level)

	mongoCfg, err := cfg.RepositoryMongoConfig()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://env-host:27017", mongoCfg.URI)
	// Properties not overridden by the environment keep their YAML values.
	assert.Equal(t, "batch_meta", mongoCfg.Database)
}

func TestLoadConfig_InvalidYAMLFails(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("moray: [not a mapping"))
	assert.Error(t, err)
}

func TestMongoConfigFor_Validation(t *testing.T) {
	cfg, err := config.LoadConfig("", config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	_, err = cfg.MongoConfigFor("missing")
	assert.Error(t, err)

	cfg.Moray.DatastoreConfigs["broken"] = map[string]interface{}{"database": "only_db"}
	_, err = cfg.MongoConfigFor("broken")
	assert.Error(t, err, "an entry without a uri must be rejected")

	cfg.Moray.DatastoreConfigs["nouri"] = map[string]interface{}{"uri": "mongodb://h:27017"}
	_, err = cfg.MongoConfigFor("nouri")
	assert.Error(t, err, "an entry without a database must be rejected")
}

func TestRepositoryMongoConfig_DefaultsRef(t *testing.T) {
	cfg, err := config.LoadConfig("", config.EmbeddedConfig(testYAML))
	require.NoError(t, err)
	cfg.Moray.Repository.DatastoreRef = ""

	mongoCfg, err := cfg.RepositoryMongoConfig()
	require.NoError(t, err)
	assert.Equal(t, "batch_meta", mongoCfg.Database)
}
