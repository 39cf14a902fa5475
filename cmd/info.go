package cmd

import (
	"github.com/smazurov/camspeed/internal/config"
	"github.com/smazurov/camspeed/internal/logging"
	"github.com/smazurov/camspeed/internal/session"
	"github.com/spf13/cobra"
)

// CreateInfoCmd creates the command that prints device information and
// settings without streaming. With a config file the settings are applied
// first.
func CreateInfoCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "info [config.toml]",
		Short: "Print camera information and settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, args, opts); err != nil {
				return err
			}
			settings, err := loadSettings(opts)
			if err != nil {
				return err
			}
			_, err = session.Inspect(session.Options{
				Open:     openFunc(opts),
				Serial:   opts.Serial,
				Settings: settings,
				Output:   cmd.OutOrStdout(),
				Logger:   logging.GetLogger("session"),
			}, opts.Config != "")
			return err
		},
	}
}
