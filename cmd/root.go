// Package cmd implements the xtune command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ftahirops/xtune/config"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

var (
	cfgFile  string
	logLevel string
	dataDir  string
)

var rootCmd = &cobra.Command{
	Use:   "xtune",
	Short: "xtune - adaptive disk power management",
	Long: `xtune watches the load of rotational disks and lowers their power
level progressively while they stay idle: APM level and standby timeout
are set through hdparm, and an optional IO scheduler override is applied
and reverted safely, even across crashes.

Use "xtune [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/xtune/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override data directory")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run executes the root command.
func Run() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration, applies flag overrides and sets up
// logging. The closer releases the log output.
func loadConfig() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	closer, err := config.SetupLogging(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "xtune v%s\n", Version)
	},
}

func warnIfNotRoot() {
	if os.Geteuid() != 0 {
		logrus.Warn("running without root: sysfs writes and hdparm will likely fail")
	}
}
