package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ftahirops/xtune/daemon"
	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/ui"
)

var (
	statusOutput string
	statusEvents int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every tuned disk",
	Long: `Display the last status published by the daemon: power level,
load and IO scheduler of every tuned disk, followed by the most recent
level transitions.

Examples:
  xtune status
  xtune status --output json | jq '.devices[].level'`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
	statusCmd.Flags().IntVarP(&statusEvents, "events", "n", 5, "Number of recent transitions to show")
}

// statusReport is the machine readable form of `xtune status`.
type statusReport struct {
	Running bool               `json:"running" yaml:"running"`
	PID     int                `json:"pid,omitempty" yaml:"pid,omitempty"`
	Status  *model.Status      `json:"status,omitempty" yaml:"status,omitempty"`
	Events  []model.LevelEvent `json:"events,omitempty" yaml:"events,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer.Close()

	var report statusReport
	report.PID, report.Running = daemon.RunningPID(daemon.PIDPath(cfg.DataDir))

	st, err := daemon.ReadStatus(daemon.StatusPath(cfg.DataDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	report.Status = st

	if events, err := engine.ReadEventLog(daemon.EventsPath(cfg.DataDir)); err == nil {
		report.Events = engine.TailEvents(events, statusEvents)
	}

	out := cmd.OutOrStdout()
	switch statusOutput {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		return yaml.NewEncoder(out).Encode(report)
	case "table":
	default:
		return fmt.Errorf("unknown output format %q", statusOutput)
	}

	if !report.Running {
		fmt.Fprintln(out, "daemon is not running")
	}
	now := time.Now()
	fmt.Fprint(out, ui.RenderStatus(st, model.DefaultPowerProfile(), now))
	if statusEvents > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, ui.RenderEvents(report.Events, now))
	}
	return nil
}
