package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ftahirops/xtune/ui"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the daemon state in a live terminal view",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := loadConfig()
		if err != nil {
			return err
		}
		defer closer.Close()

		interval := watchInterval
		if interval <= 0 {
			interval = cfg.Interval
		}
		p := tea.NewProgram(ui.NewModel(cfg.DataDir, interval), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "refresh", 0, "Refresh interval (default: daemon interval)")
}
