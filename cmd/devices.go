package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ftahirops/xtune/collector"
	"github.com/ftahirops/xtune/model"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the disks eligible for tuning",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := loadConfig()
		if err != nil {
			return err
		}
		defer closer.Close()

		devices, err := collector.SysfsDevices{Root: cfg.SysfsRoot, Vendors: cfg.Vendors}.ListEligibleDevices()
		if err != nil {
			return err
		}
		load, err := collector.NewDiskMonitor(cfg.ProcfsRoot, devices).GetLoad()
		if err != nil {
			load = nil
		}
		sched := collector.SysfsScheduler{Root: cfg.SysfsRoot}

		out := cmd.OutOrStdout()
		if len(devices) == 0 {
			fmt.Fprintln(out, "no eligible devices")
			return nil
		}
		fmt.Fprintf(out, "%-8s %-12s %12s %12s\n", "DEVICE", "SCHEDULER", "READS", "WRITES")
		for _, dev := range devices {
			current, err := sched.Read(dev)
			if err != nil || current == "" {
				current = "?"
			}
			var reads, writes uint64
			if s, ok := load[dev]; ok && len(s) == model.LoadSampleWidth {
				reads, writes = s[model.ReadLoadField], s[model.WriteLoadField]
			}
			fmt.Fprintf(out, "%-8s %-12s %12d %12d\n", dev, current, reads, writes)
		}
		return nil
	},
}
