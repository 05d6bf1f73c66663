package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/storage"
)

// Config holds the daemon configuration.
//
// Sources in order of precedence: environment variables (XTUNE_*), the
// configuration file, defaults.
type Config struct {
	// Interval between two tuning updates
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"required,gt=0"`

	// DataDir holds the pid file, status, event log and the store
	DataDir string `mapstructure:"data_dir" yaml:"data_dir" validate:"required"`

	// SysfsRoot and ProcfsRoot locate the kernel interfaces
	SysfsRoot  string `mapstructure:"sysfs_root" yaml:"sysfs_root" validate:"required"`
	ProcfsRoot string `mapstructure:"procfs_root" yaml:"procfs_root" validate:"required"`

	// HdparmPath overrides the hdparm lookup in $PATH
	HdparmPath string `mapstructure:"hdparm_path" yaml:"hdparm_path,omitempty"`

	// Vendors lists the device vendor strings eligible for tuning
	Vendors []string `mapstructure:"vendors" yaml:"vendors" validate:"required,min=1"`

	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Store   storage.Config `mapstructure:"store" yaml:"store"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`

	// Instances are the configured tuning units, in declaration order
	Instances []model.InstanceConfig `mapstructure:"instances" yaml:"instances" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is text or json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		Interval:   10 * time.Second,
		DataDir:    "/var/lib/xtune",
		SysfsRoot:  "/sys",
		ProcfsRoot: "/proc",
		Vendors:    []string{"ATA", "SCSI"},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Store: storage.Config{
			Backend: storage.BackendFile,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9101",
		},
		Instances: []model.InstanceConfig{
			{Name: "disk", Type: "disk", Enabled: true},
		},
	}
}

// Path returns $XDG_CONFIG_HOME/xtune/config.yaml, falling back to
// ~/.config. Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "xtune", "config.yaml")
}

// Load reads the configuration at path (the default location when empty).
// A missing file yields the defaults, still subject to env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("XTUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path == "" {
		path = Path()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	hooks := mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), mapstructure.StringToSliceHookFunc(","))
	if err := v.Unmarshal(cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyInstanceDefaults(v, cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers scalar defaults so env overrides apply even
// without a config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("interval", d.Interval.String())
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("sysfs_root", d.SysfsRoot)
	v.SetDefault("procfs_root", d.ProcfsRoot)
	v.SetDefault("hdparm_path", d.HdparmPath)
	v.SetDefault("vendors", d.Vendors)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// applyInstanceDefaults fills the default instance list when the file has
// none, and enables instances that omit the enabled key.
func applyInstanceDefaults(v *viper.Viper, cfg *Config) {
	if !v.IsSet("instances") {
		cfg.Instances = Default().Instances
		return
	}
	raw, _ := v.Get("instances").([]interface{})
	for i := range cfg.Instances {
		if i >= len(raw) {
			break
		}
		m, ok := raw[i].(map[string]interface{})
		if !ok {
			continue
		}
		if _, set := m["enabled"]; !set {
			cfg.Instances[i].Enabled = true
		}
	}
}

// Validate checks struct constraints and instance name uniqueness.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	seen := make(map[string]bool, len(cfg.Instances))
	for _, inst := range cfg.Instances {
		if seen[inst.Name] {
			return fmt.Errorf("duplicate instance name %q", inst.Name)
		}
		seen[inst.Name] = true
	}
	return nil
}

// Save writes the config as YAML.
func Save(cfg *Config, path string) error {
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// durationDecodeHook converts strings like "10s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}
