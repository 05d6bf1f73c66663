package model

import "time"

// InstanceConfig is one configured tuning instance.
type InstanceConfig struct {
	Name    string            `mapstructure:"name" yaml:"name" json:"name" validate:"required"`
	Type    string            `mapstructure:"type" yaml:"type" json:"type" validate:"required"`
	Enabled bool              `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Devices []Device          `mapstructure:"devices" yaml:"devices,omitempty" json:"devices,omitempty"`
	Options map[string]string `mapstructure:"options" yaml:"options,omitempty" json:"options,omitempty"`
}

// DeviceStatus is the per-device state published after every tick.
type DeviceStatus struct {
	Instance       string    `json:"instance"`
	Device         Device    `json:"device"`
	Level          int       `json:"level"`
	Levels         int       `json:"levels"`
	ReadLoad       float64   `json:"read_load"`
	WriteLoad      float64   `json:"write_load"`
	ReadIdleTicks  int       `json:"read_idle_ticks"`
	WriteIdleTicks int       `json:"write_idle_ticks"`
	LevelSince     time.Time `json:"level_since,omitempty"`
	Elevator       string    `json:"elevator,omitempty"`
	SavedElevator  string    `json:"saved_elevator,omitempty"`
	ElevatorSince  time.Time `json:"elevator_since,omitempty"`
}

// Status is the daemon-wide snapshot written to status.json.
type Status struct {
	Timestamp time.Time      `json:"ts"`
	PID       int            `json:"pid"`
	Interval  time.Duration  `json:"interval"`
	Ticks     uint64         `json:"ticks"`
	Instances []string       `json:"instances"`
	Devices   []DeviceStatus `json:"devices"`
}
