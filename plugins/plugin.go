// Package plugins implements the tuning plugins driven by the unit manager.
// A plugin owns a pool of eligible devices and hands them out to the
// instances created from configuration.
package plugins

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ftahirops/xtune/collector"
	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/storage"
)

var (
	// ErrUnknownPlugin is returned for plugin types missing from the repository.
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrUnsupported is returned when a plugin cannot run on this host.
	ErrUnsupported = errors.New("plugin not supported on this system")
)

// Instance is one configured unit of tuning.
type Instance interface {
	Name() string
	Devices() []model.Device
	ApplyTuning() error
	UpdateTuning() error
	UnapplyTuning() error
}

// Plugin creates instances and distributes its devices among them.
type Plugin interface {
	Name() string
	CreateInstance(name string, devices []model.Device, options map[string]string) (Instance, error)
	// AssignFreeDevices gives inst its share of the devices not claimed
	// explicitly by any instance.
	AssignFreeDevices(inst Instance)
	Cleanup()
}

// StatusReporter is implemented by instances that publish per-device state.
type StatusReporter interface {
	Status() []model.DeviceStatus
}

// PowerControl applies a power setting to a device.
type PowerControl interface {
	SetProfile(device model.Device, setting model.PowerSetting) error
}

// Env carries the capabilities plugins are built from.
type Env struct {
	Devices   collector.DeviceLister
	Monitors  *collector.Repository
	Store     storage.Store
	Scheduler engine.SchedulerIO
	Power     PowerControl
	Profile   model.PowerProfile
	Metrics   *engine.Metrics
	Events    engine.EventSink
}

// Factory builds a plugin from env.
type Factory func(env Env) (Plugin, error)

// Repository maps plugin type names to their factories.
type Repository struct {
	env       Env
	factories map[string]Factory
}

// NewRepository creates a repository holding the built-in plugins.
func NewRepository(env Env) *Repository {
	r := &Repository{env: env, factories: make(map[string]Factory)}
	r.Register("disk", func(env Env) (Plugin, error) {
		return NewDiskPlugin(env)
	})
	return r
}

// Register adds or replaces a plugin factory.
func (r *Repository) Register(name string, f Factory) {
	r.factories[name] = f
}

// Create instantiates the named plugin.
func (r *Repository) Create(name string) (Plugin, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
	return f(r.env)
}

// Names returns the registered plugin names.
func (r *Repository) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
