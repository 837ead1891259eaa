package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go.uber.org/fx"

	"github.com/tigerroll/moray/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string         `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from defaults, the embedded YAML and
// environment variables, in that order of precedence (later wins). It is
// intended to be called only once during application startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also sets the global logger level from the loaded configuration.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	GlobalConfig = cfg

	logger.SetLogLevel(cfg.Moray.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Moray.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from configuration files and environment variables.
// This function is expected to be called only once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// MongoConfigFor resolves the datastore entry named by ref into a MongoConfig.
func (c *Config) MongoConfigFor(ref string) (*MongoConfig, error) {
	raw, ok := c.Moray.DatastoreConfigs[ref]
	if !ok {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("datastore '%s' is not configured", ref), nil, false, false)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("datastore '%s' is not a mapping", ref), nil, false, false)
	}
	mongoCfg := &MongoConfig{
		ConnectTimeoutSeconds: 10,
		PingTimeoutSeconds:    5,
	}
	if err := configbinder.Bind(props, mongoCfg); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to bind datastore '%s'", ref), err, false, false)
	}
	if mongoCfg.URI == "" {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("datastore '%s' has no uri", ref), nil, false, false)
	}
	if mongoCfg.Database == "" {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("datastore '%s' has no database", ref), nil, false, false)
	}
	return mongoCfg, nil
}

// RepositoryMongoConfig resolves the datastore entry referenced by the job
// repository configuration.
func (c *Config) RepositoryMongoConfig() (*MongoConfig, error) {
	ref := c.Moray.Repository.DatastoreRef
	if ref == "" {
		ref = "metadata"
	}
	return c.MongoConfigFor(ref)
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite corresponding values in destConfig when
// they are not zero values for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeMorayConfig(&destConfig.Moray, &sourceConfig.Moray)
}

func mergeMorayConfig(dest, source *MorayConfig) {
	if source.Repository.DatastoreRef != "" {
		dest.Repository.DatastoreRef = source.Repository.DatastoreRef
	}
	mergeSystemConfig(&dest.System, &source.System)

	if source.DatastoreConfigs != nil {
		if dest.DatastoreConfigs == nil {
			dest.DatastoreConfigs = make(map[string]interface{})
		}
		for key, value := range source.DatastoreConfigs {
			dest.DatastoreConfigs[key] = value
		}
	}
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" {
		dest.Timezone = source.Timezone
	}
	if source.Logging.Level != "" {
		dest.Logging.Level = source.Logging.Level
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables, using the "yaml" tag to build the variable name
// (e.g. MORAY_SYSTEM_LOGGING_LEVEL).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			if field.Kind() == reflect.Map {
				if err := loadDatastoresFromEnv(field, envVarName+"_"); err != nil {
					return err
				}
			}
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadDatastoresFromEnv loads entries of the datastore map from environment
// variables of the form <PREFIX><ENTRY>_<PROPERTY>, e.g.
// MORAY_DATASTORE_METADATA_URI=mongodb://db:27017 sets the "uri" property of
// the "metadata" entry.
func loadDatastoresFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.Type().Key().Kind() != reflect.String {
		return nil
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 {
			continue
		}
		entryName := strings.ToLower(keyAndField[0])
		propName := strings.ToLower(keyAndField[1])

		if mapField.IsNil() {
			mapField.Set(reflect.MakeMap(mapField.Type()))
		}

		var props map[string]interface{}
		existing := mapField.MapIndex(reflect.ValueOf(entryName))
		if existing.IsValid() {
			if m, ok := existing.Interface().(map[string]interface{}); ok {
				props = m
			}
		}
		if props == nil {
			props = make(map[string]interface{})
		}
		props[propName] = parts[1]
		mapField.SetMapIndex(reflect.ValueOf(entryName), reflect.ValueOf(interface{}(props)))
	}
	return nil
}

// setField sets a reflect.Value field from a string, converting to the field's kind.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
