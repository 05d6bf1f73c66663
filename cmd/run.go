package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ftahirops/xtune/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tuning daemon in the foreground",
	Long: `Run the tuning daemon in the foreground until SIGINT or SIGTERM.

On start, IO scheduler overrides left behind by a previous run are
reverted. On shutdown every tuned disk is put back to full power and its
scheduler is restored.

Examples:
  # Run with the default configuration
  sudo xtune run

  # Debug logging and a custom data directory
  sudo xtune run --log-level debug --data-dir /tmp/xtune`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := loadConfig()
		if err != nil {
			return err
		}
		defer closer.Close()

		warnIfNotRoot()
		return daemon.Run(cmd.Context(), cfg)
	},
}
