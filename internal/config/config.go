// Package config loads camspeed options and camera settings from a TOML
// file, CAMSPEED_* environment variables and command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/camspeed/internal/camera"
	"github.com/smazurov/camspeed/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every env tag.
const EnvPrefix = "CAMSPEED_"

// ErrNotReadable is returned when a config file was named but cannot be read.
var ErrNotReadable = errors.New("config file is not readable")

// Options are the command line options of camspeed. Field names map to flag
// names: MqttBroker is --mqtt-broker.
type Options struct {
	Config string

	Driver   string        `toml:"app.driver" env:"DRIVER"`
	Serial   string        `toml:"app.serial" env:"SERIAL"`
	Interval time.Duration `toml:"app.interval" env:"INTERVAL"`
	Policy   string        `toml:"app.policy" env:"POLICY"`
	Format   string        `toml:"app.format" env:"FORMAT"`
	Listen   string        `toml:"app.listen" env:"LISTEN"`
	Watch    bool          `toml:"app.watch" env:"WATCH"`

	MqttBroker   string `toml:"mqtt.broker" env:"MQTT_BROKER"`
	MqttTopic    string `toml:"mqtt.topic" env:"MQTT_TOPIC"`
	MqttClientID string `toml:"mqtt.client_id" env:"MQTT_CLIENT_ID"`

	LogLevel  string `toml:"logging.level" env:"LOG_LEVEL"`
	LogFormat string `toml:"logging.format" env:"LOG_FORMAT"`

	SimCameras int     `toml:"sim.cameras" env:"SIM_CAMERAS"`
	SimMaxFps  float64 `toml:"sim.max_fps" env:"SIM_MAX_FPS"`
}

// DefaultOptions returns the flag defaults.
func DefaultOptions() Options {
	return Options{
		Driver:     "sim",
		Interval:   time.Second,
		Policy:     "fixed",
		Format:     "fps",
		MqttTopic:  "camspeed",
		LogLevel:   "info",
		LogFormat:  "text",
		SimCameras: 1,
	}
}

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrNotReadable, configPath, err)
		}
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", configPath, err)
		}
		for i := 0; i < v.NumField(); i++ {
			field, fieldType := v.Field(i), t.Field(i)
			if changed[fieldNameToFlag(fieldType.Name)] {
				continue
			}
			tomlPath := fieldType.Tag.Get("toml")
			if tomlPath == "" {
				continue
			}
			if value := getNestedValue(doc, tomlPath); value != nil {
				if err := setFieldValue(field, value); err != nil {
					return fmt.Errorf("%s: %w", tomlPath, err)
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field, fieldType := v.Field(i), t.Field(i)
		if changed[fieldNameToFlag(fieldType.Name)] {
			continue
		}
		envKey := fieldType.Tag.Get("env")
		if envKey == "" {
			continue
		}
		if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
			if err := setFieldValueFromString(field, envValue); err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, envKey, err)
			}
		}
	}

	return nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "SimMaxFps" -> "sim-max-fps", "Serial" -> "serial".
// Runs of capitals stay together: "MqttClientID" -> "mqtt-client-id".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	current := data
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue assigns a decoded TOML value to field.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		switch val := value.(type) {
		case string:
			d, err := time.ParseDuration(val)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		case int64:
			field.SetInt(val * int64(time.Second))
		case float64:
			field.SetInt(int64(val * float64(time.Second)))
		default:
			return fmt.Errorf("want duration, got %T", value)
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, ok := value.(int64)
		if !ok {
			return fmt.Errorf("want integer, got %T", value)
		}
		field.SetInt(i)
	case reflect.Float64:
		switch val := value.(type) {
		case float64:
			field.SetFloat(val)
		case int64:
			field.SetFloat(float64(val))
		default:
			return fmt.Errorf("want number, got %T", value)
		}
	}
	return nil
}

// setFieldValueFromString sets a field value from string (for env vars).
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	}
	return nil
}

// file is the layout of a camspeed config file. Only [camera] is decoded
// strictly; the other tables are read by LoadConfig and LoadLoggingConfig.
type file struct {
	Camera  camera.Settings `toml:"camera"`
	App     map[string]any  `toml:"app"`
	Logging map[string]any  `toml:"logging"`
	Mqtt    map[string]any  `toml:"mqtt"`
	Sim     map[string]any  `toml:"sim"`
}

// LoadSettings decodes the [camera] table of path on top of
// camera.DefaultSettings. Unknown keys are an error.
func LoadSettings(path string) (camera.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return camera.Settings{}, fmt.Errorf("%w: %s: %w", ErrNotReadable, path, err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes the [camera] table of a config document.
func ParseSettings(data []byte) (camera.Settings, error) {
	f := file{Camera: camera.DefaultSettings()}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return camera.Settings{}, fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, col := decErr.Position()
			return camera.Settings{}, fmt.Errorf("parse config at line %d column %d: %w", row, col, err)
		}
		return camera.Settings{}, fmt.Errorf("parse config: %w", err)
	}
	return f.Camera, nil
}

// LoadLiveSettings loads path and keeps only the settings that can change
// while acquiring. It is the loader of the live settings watcher.
func LoadLiveSettings(path string) (camera.Settings, error) {
	s, err := LoadSettings(path)
	if err != nil {
		return camera.Settings{}, err
	}
	return s.Live(), nil
}

// LoadLoggingConfig loads logging configuration from a TOML config file.
// Returns default config if file doesn't exist or can't be parsed.
// Keys other than level and format are per-module levels.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}
	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			cfg.Level = s
		case "format":
			cfg.Format = s
		default:
			cfg.Modules[key] = s
		}
	}
	return cfg
}
