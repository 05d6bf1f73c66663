package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ftahirops/xtune/collector"
	"github.com/ftahirops/xtune/daemon"
	"github.com/ftahirops/xtune/storage"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Restore IO schedulers left overridden by a crashed daemon",
	Long: `Revert every IO scheduler override recorded in the store and
forget the records. The daemon does this itself on start; this command is
for hosts where it will not be started again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := loadConfig()
		if err != nil {
			return err
		}
		defer closer.Close()

		if pid, running := daemon.RunningPID(daemon.PIDPath(cfg.DataDir)); running {
			return fmt.Errorf("daemon is running (pid %d), stop it first", pid)
		}
		warnIfNotRoot()

		store, err := storage.Open(cfg.Store, cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		n, err := daemon.Recover(store, collector.SysfsScheduler{Root: cfg.SysfsRoot}, nil)
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d devices\n", n)
		return err
	},
}
