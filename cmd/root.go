// Package cmd holds the camspeed cobra commands.
package cmd

import (
	"strconv"
	"strings"

	"github.com/smazurov/camspeed/internal/camera"
	"github.com/smazurov/camspeed/internal/camera/sim"
	"github.com/smazurov/camspeed/internal/config"
	"github.com/smazurov/camspeed/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the camspeed command tree. All options are persistent
// flags so every subcommand resolves them the same way.
func NewRootCmd() *cobra.Command {
	opts := config.DefaultOptions()

	root := &cobra.Command{
		Use:          "camspeed",
		Short:        "Measure the sustained frame rate of an industrial camera",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.Config, "config", "c", "", "TOML config file (also accepted as positional argument)")
	flags.StringVar(&opts.Driver, "driver", opts.Driver, "camera driver ("+strings.Join(camera.Drivers(), ", ")+")")
	flags.StringVar(&opts.Serial, "serial", opts.Serial, "serial number of the camera, first camera when empty")
	flags.DurationVar(&opts.Interval, "interval", opts.Interval, "measurement interval")
	flags.StringVar(&opts.Policy, "policy", opts.Policy, "interval boundary policy (fixed, elastic)")
	flags.StringVar(&opts.Format, "format", opts.Format, "report format (fps: \"30fps\", label: \"FPS: 30\")")
	flags.StringVar(&opts.Listen, "listen", opts.Listen, "status API address, disabled when empty")
	flags.BoolVar(&opts.Watch, "watch", opts.Watch, "apply exposure, gain and white balance changes of the config file while streaming")
	flags.StringVar(&opts.MqttBroker, "mqtt-broker", opts.MqttBroker, "MQTT broker URL for reports, disabled when empty")
	flags.StringVar(&opts.MqttTopic, "mqtt-topic", opts.MqttTopic, "MQTT topic prefix")
	flags.StringVar(&opts.MqttClientID, "mqtt-client-id", opts.MqttClientID, "MQTT client ID, derived from the session when empty")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "log format (text, json)")
	flags.IntVar(&opts.SimCameras, "sim-cameras", opts.SimCameras, "number of simulated cameras")
	flags.Float64Var(&opts.SimMaxFps, "sim-max-fps", opts.SimMaxFps, "frame rate cap of simulated cameras, 0 for none")

	root.AddCommand(
		CreateRunCmd(&opts),
		CreateInfoCmd(&opts),
		CreateListCmd(&opts),
		CreateVersionCmd(),
	)
	return root
}

// prepare resolves options for cmd: an optional positional config path,
// then file, env and flags. It initializes logging.
func prepare(cmd *cobra.Command, args []string, opts *config.Options) error {
	if len(args) > 0 {
		opts.Config = args[0]
	}
	if err := config.LoadConfig(opts, cmd); err != nil {
		return err
	}

	logCfg := config.LoadLoggingConfig(opts.Config)
	logCfg.Level = opts.LogLevel
	logCfg.Format = opts.LogFormat
	logging.Initialize(logCfg)

	logging.GetLogger("config").Debug("Options resolved",
		"config", opts.Config, "driver", opts.Driver, "serial", opts.Serial,
		"interval", opts.Interval, "policy", opts.Policy)
	return nil
}

// loadSettings returns the [camera] settings of the config file, or the
// built-in defaults without one.
func loadSettings(opts *config.Options) (camera.Settings, error) {
	if opts.Config == "" {
		return camera.DefaultSettings(), nil
	}
	return config.LoadSettings(opts.Config)
}

// driverParams maps the driver specific options.
func driverParams(opts *config.Options) map[string]string {
	if opts.Driver != sim.DriverName {
		return nil
	}
	params := map[string]string{"cameras": strconv.Itoa(opts.SimCameras)}
	if opts.SimMaxFps > 0 {
		params["max_fps"] = strconv.FormatFloat(opts.SimMaxFps, 'f', -1, 64)
	}
	return params
}

func openFunc(opts *config.Options) func() (camera.System, error) {
	driver, params := opts.Driver, driverParams(opts)
	return func() (camera.System, error) {
		return camera.Open(driver, params)
	}
}
