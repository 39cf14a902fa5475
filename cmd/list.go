package cmd

import (
	"fmt"

	"github.com/smazurov/camspeed/internal/config"
	"github.com/smazurov/camspeed/internal/session"
	"github.com/spf13/cobra"
)

// CreateListCmd creates the command that enumerates cameras.
func CreateListCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the cameras of the driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, args, opts); err != nil {
				return err
			}
			devices, err := session.List(openFunc(opts))
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No camera connected")
				return nil
			}
			session.WriteDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
}
