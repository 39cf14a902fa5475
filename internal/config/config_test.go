package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camspeed/internal/camera"
	"github.com/spf13/cobra"
)

const sampleConfig = `
[app]
driver = "sim"
serial = "SIM20002"
interval = "500ms"
policy = "elastic"
format = "label"
listen = ":8090"
watch = true

[mqtt]
broker = "tcp://broker:1883"
topic = "lab"

[logging]
level = "debug"
format = "json"
session = "warn"

[sim]
cameras = 2
max_fps = 60

[camera]
width = 640
height = 480
offset_x = 16
offset_y = 8
exposure_time = 5000.0
gain = 3.5
pixel_format = "Mono8"
acquisition_mode = "Continuous"
auto_exposure = "Off"
auto_gain = "Off"
auto_white_balance = "Continuous"
adc_bit_depth = "Bit8"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	opts := DefaultOptions()
	opts.Config = writeConfig(t, sampleConfig)

	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := Options{
		Config:     opts.Config,
		Driver:     "sim",
		Serial:     "SIM20002",
		Interval:   500 * time.Millisecond,
		Policy:     "elastic",
		Format:     "label",
		Listen:     ":8090",
		Watch:      true,
		MqttBroker: "tcp://broker:1883",
		MqttTopic:  "lab",
		LogLevel:   "debug",
		LogFormat:  "json",
		SimCameras: 2,
		SimMaxFps:  60,
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("options = %+v\nwant      %+v", opts, want)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("CAMSPEED_SERIAL", "ENV1")
	t.Setenv("CAMSPEED_INTERVAL", "2s")
	t.Setenv("CAMSPEED_WATCH", "true")
	t.Setenv("CAMSPEED_SIM_CAMERAS", "3")
	t.Setenv("CAMSPEED_SIM_MAX_FPS", "12.5")

	opts := DefaultOptions()
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Serial != "ENV1" {
		t.Errorf("Serial = %q, want ENV1", opts.Serial)
	}
	if opts.Interval != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", opts.Interval)
	}
	if !opts.Watch {
		t.Error("Watch = false, want true")
	}
	if opts.SimCameras != 3 {
		t.Errorf("SimCameras = %d, want 3", opts.SimCameras)
	}
	if opts.SimMaxFps != 12.5 {
		t.Errorf("SimMaxFps = %v, want 12.5", opts.SimMaxFps)
	}
	if opts.Driver != "sim" {
		t.Errorf("Driver = %q, want default sim", opts.Driver)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("CAMSPEED_SERIAL", "ENV1")
	t.Setenv("CAMSPEED_POLICY", "fixed")

	opts := DefaultOptions()
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().StringVar(&opts.Config, "config", "", "")
	cmd.Flags().StringVar(&opts.Serial, "serial", opts.Serial, "")
	cmd.Flags().StringVar(&opts.Policy, "policy", opts.Policy, "")
	cmd.Flags().StringVar(&opts.Format, "format", opts.Format, "")
	cmd.Flags().StringVar(&opts.MqttBroker, "mqtt-broker", opts.MqttBroker, "")
	if err := cmd.ParseFlags([]string{"--serial", "CLI1", "--mqtt-broker", "tcp://cli:1883"}); err != nil {
		t.Fatal(err)
	}
	opts.Config = writeConfig(t, sampleConfig)

	if err := LoadConfig(&opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// CLI beats env and file, env beats file, file beats defaults.
	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"Serial", opts.Serial, "CLI1"},
		{"MqttBroker", opts.MqttBroker, "tcp://cli:1883"},
		{"Policy", opts.Policy, "fixed"},
		{"Format", opts.Format, "label"},
		{"LogFormat", opts.LogFormat, "json"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := DefaultOptions()
	opts.Config = filepath.Join(t.TempDir(), "missing.toml")

	err := LoadConfig(&opts, nil)
	if !errors.Is(err, ErrNotReadable) {
		t.Fatalf("LoadConfig() error = %v, want ErrNotReadable", err)
	}
	if !strings.Contains(err.Error(), "config file is not readable") {
		t.Errorf("error = %q", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := DefaultOptions()
	opts.Config = writeConfig(t, "[app\ninvalid toml syntax\n")

	if err := LoadConfig(&opts, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadConfigWrongType(t *testing.T) {
	opts := DefaultOptions()
	opts.Config = writeConfig(t, "[sim]\ncameras = \"two\"\n")

	err := LoadConfig(&opts, nil)
	if err == nil || !strings.Contains(err.Error(), "sim.cameras") {
		t.Fatalf("LoadConfig() error = %v, want sim.cameras type error", err)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Serial":       "serial",
		"MqttBroker":   "mqtt-broker",
		"SimMaxFps":    "sim-max-fps",
		"LogLevel":     "log-level",
		"MqttClientID": "mqtt-client-id",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"app":  map[string]any{"serial": "A"},
		"root": "r",
	}
	tests := []struct {
		path string
		want any
	}{
		{"root", "r"},
		{"app.serial", "A"},
		{"app.missing", nil},
		{"root.deeper", nil},
		{"nothing.here", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSetFieldValueDuration(t *testing.T) {
	var opts Options
	field := reflect.ValueOf(&opts).Elem().FieldByName("Interval")

	tests := []struct {
		value any
		want  time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{int64(2), 2 * time.Second},
		{1.5, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		if err := setFieldValue(field, tt.value); err != nil {
			t.Fatalf("setFieldValue(%v) error = %v", tt.value, err)
		}
		if opts.Interval != tt.want {
			t.Errorf("setFieldValue(%v) = %v, want %v", tt.value, opts.Interval, tt.want)
		}
	}
	if err := setFieldValue(field, "soon"); err == nil {
		t.Error("setFieldValue(soon) should fail")
	}
}

func TestLoadSettings(t *testing.T) {
	s, err := LoadSettings(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	want := camera.Settings{
		Width:            camera.Ptr(int64(640)),
		Height:           camera.Ptr(int64(480)),
		OffsetX:          camera.Ptr(int64(16)),
		OffsetY:          camera.Ptr(int64(8)),
		ExposureTime:     camera.Ptr(5000.0),
		Gain:             camera.Ptr(3.5),
		PixelFormat:      camera.Ptr("Mono8"),
		AcquisitionMode:  camera.Ptr("Continuous"),
		AutoExposure:     camera.Ptr("Off"),
		AutoGain:         camera.Ptr("Off"),
		AutoWhiteBalance: camera.Ptr("Continuous"),
		AdcBitDepth:      camera.Ptr("Bit8"),
	}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("settings = %+v, want %+v", s, want)
	}
}

func TestParseSettingsDefaults(t *testing.T) {
	s, err := ParseSettings([]byte("[camera]\nwidth = 800\n"))
	if err != nil {
		t.Fatal(err)
	}
	if *s.Width != 800 {
		t.Errorf("Width = %d, want 800", *s.Width)
	}
	if s.Height != nil {
		t.Errorf("Height = %d, want nil (sensor maximum)", *s.Height)
	}
	if *s.PixelFormat != "BayerRG8" || *s.AcquisitionMode != "Continuous" {
		t.Errorf("defaults = %s/%s, want BayerRG8/Continuous", *s.PixelFormat, *s.AcquisitionMode)
	}
}

func TestParseSettingsUnknownKey(t *testing.T) {
	_, err := ParseSettings([]byte("[camera]\nshutter_speed = 10\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "shutter_speed") {
		t.Errorf("error = %q, want key name", err)
	}
}

func TestParseSettingsSyntaxError(t *testing.T) {
	_, err := ParseSettings([]byte("[camera]\nwidth = = 3\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("ParseSettings() error = %v, want position", err)
	}
}

func TestLoadLiveSettings(t *testing.T) {
	s, err := LoadLiveSettings(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != nil || s.PixelFormat != nil || s.AcquisitionMode != nil {
		t.Errorf("live settings carry stream locked fields: %+v", s)
	}
	if *s.Gain != 3.5 || *s.ExposureTime != 5000 {
		t.Errorf("gain/exposure = %v/%v", *s.Gain, *s.ExposureTime)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	cfg := LoadLoggingConfig(writeConfig(t, sampleConfig))
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("level/format = %s/%s", cfg.Level, cfg.Format)
	}
	if cfg.Modules["session"] != "warn" {
		t.Errorf("session level = %q, want warn", cfg.Modules["session"])
	}

	def := LoadLoggingConfig("")
	if def.Level != "info" || def.Format != "text" {
		t.Errorf("defaults = %s/%s", def.Level, def.Format)
	}
}
