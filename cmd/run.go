package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/camspeed/internal/api"
	"github.com/smazurov/camspeed/internal/camera"
	"github.com/smazurov/camspeed/internal/config"
	"github.com/smazurov/camspeed/internal/events"
	"github.com/smazurov/camspeed/internal/fps"
	"github.com/smazurov/camspeed/internal/logging"
	"github.com/smazurov/camspeed/internal/metrics"
	"github.com/smazurov/camspeed/internal/report"
	"github.com/smazurov/camspeed/internal/session"
	"github.com/smazurov/camspeed/internal/systemd"
	"github.com/spf13/cobra"
)

// CreateRunCmd creates the command that measures the frame rate until
// interrupted.
func CreateRunCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run [config.toml]",
		Short: "Configure the camera and print its frame rate every interval",
		Long: `Configure the camera from the [camera] table of the config file, or with
the built-in defaults (full resolution, BayerRG8, continuous acquisition)
when no file is given, then print the number of frames received in every
interval until interrupted. The first interval is discarded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, args, opts); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}
}

func run(ctx context.Context, cmd *cobra.Command, opts *config.Options) error {
	logger := logging.GetLogger("main")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	policy, err := fps.ParsePolicy(opts.Policy)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	bus := events.New()
	defer bus.Close()
	defer metrics.Attach(bus)()
	status := api.NewStatus()
	defer status.Attach(bus)()

	notifier := systemd.NewNotifier(logger)
	sess := session.New(session.Options{
		Driver:       opts.Driver,
		DriverParams: driverParams(opts),
		Serial:       opts.Serial,
		Settings:     settings,
		Reporter:     report.NewConsole(cmd.OutOrStdout(), format),
		Interval:     opts.Interval,
		Policy:       policy,
		Output:       cmd.OutOrStdout(),
		Logger:       logging.GetLogger("session"),
		Bus:          bus,
		OnStart: func(st session.Started) {
			status.SetDevice(st.SessionID, st.Info, st.Settings)
			notifier.Status("measuring " + st.Info.SerialNumber)
			notifier.Ready()
		},
	})

	if opts.Listen != "" {
		server := api.NewServer(&api.Options{Status: status, PrometheusHandler: metrics.HTTPHandler()})
		go func() {
			if err := server.Start(opts.Listen); err != nil {
				logger.Error("API server failed", "addr", opts.Listen, "error", err)
			}
		}()
		defer server.Stop()
	}

	if opts.MqttBroker != "" {
		clientID := opts.MqttClientID
		if clientID == "" {
			clientID = "camspeed-" + sess.ID()
		}
		sink, err := report.NewMQTT(report.MQTTConfig{
			Broker:   opts.MqttBroker,
			ClientID: clientID,
			Topic:    opts.MqttTopic,
		}, logging.GetLogger("mqtt"))
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer sink.Close()
		defer sink.Attach(bus)()
	}

	if opts.Watch {
		if opts.Config == "" {
			logger.Warn("--watch needs a config file, ignoring")
		} else {
			watcher := config.NewWatcher(opts.Config, config.LoadLiveSettings, logging.GetLogger("config"),
				config.WithDebounce[camera.Settings](config.DefaultDebounce))
			watcher.OnReload(sess.UpdateLive)
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("watch %s: %w", opts.Config, err)
			}
			defer watcher.Stop()
		}
	}

	err = sess.Run(ctx)
	notifier.Stopping()
	if err != nil {
		logger.Error("Measurement failed", "session_id", sess.ID(), "error", err)
		return err
	}
	logger.Info("Measurement interrupted", "session_id", sess.ID())
	return nil
}
