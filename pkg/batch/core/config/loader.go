package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

const moduleName = "config"

// LoadConfig loads configuration in this order: the .env file (envFilePath,
// or ./.env when empty; a missing file is not an error), the defaults of
// NewConfig, the embedded YAML after ${VAR:default} expansion, then the
// environment variables named by `env` struct tags.
//
// Parameters:
//
//	envFilePath: The path to the .env file.
//	embeddedConfig: The embedded configuration bytes.
//
// Returns:
//
//	A pointer to the loaded and validated Config, or a ConfigurationError.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	expanded, err := NewOsEnvironmentExpander().Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to expand environment placeholders", err)
	}
	// Keys missing from the YAML keep their defaults.
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to unmarshal embedded config", err)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to load config from environment variables", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadStructFromEnv recursively sets the fields of val that carry an `env`
// tag whose variable is set. Maps of structs tagged `envPrefix` are filled
// from <PREFIX><KEY>_<FIELD> variables.
func loadStructFromEnv(val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if prefix := fieldType.Tag.Get("envPrefix"); prefix != "" && field.Kind() == reflect.Map {
			if err := loadMapOfStructsFromEnv(field, prefix); err != nil {
				return err
			}
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envVarName := fieldType.Tag.Get("env")
		if envVarName == "" {
			continue
		}
		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv loads fields of type map[string]struct{} from environment variables.
//
// Example: with prefix SURFIN_DATASOURCES_, the variable SURFIN_DATASOURCES_APP_HOST=db
// sets the field tagged `yaml:"host"` of the entry "app".
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.Type().Key().Kind() != reflect.String || mapField.Type().Elem().Kind() != reflect.Struct {
		return nil
	}
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		keyAndField, envValue, ok := strings.Cut(strings.TrimPrefix(env, prefix), "=")
		if !ok {
			continue
		}
		mapKey, structFieldName, ok := strings.Cut(keyAndField, "_")
		if !ok {
			continue
		}
		mapKey = strings.ToLower(mapKey)

		// Map values are not addressable, so copy, set and store back.
		structVal := reflect.New(elemType).Elem()
		if existing := mapField.MapIndex(reflect.ValueOf(mapKey)); existing.IsValid() {
			structVal.Set(existing)
		}
		if err := setStructFieldFromEnv(structVal, structFieldName, envValue); err != nil {
			return err
		}
		mapField.SetMapIndex(reflect.ValueOf(mapKey), structVal)
	}
	return nil
}

// setStructFieldFromEnv sets the field whose `yaml` tag matches fieldName,
// ignoring case and underscores (MAX_OPEN_CONNS matches maxOpenConns).
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	want := strings.ReplaceAll(fieldName, "_", "")
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		yamlTag, _, _ := strings.Cut(typ.Field(i).Tag.Get("yaml"), ",")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, want) {
			return setField(structVal.Field(i), value)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
// Slices of strings are read as comma-separated lists.
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
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem())
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
