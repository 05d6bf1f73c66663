package collector

import (
	"fmt"
	"sort"

	"github.com/ftahirops/xtune/model"
)

// LoadMonitor produces one load snapshot of its devices per call.
type LoadMonitor interface {
	Name() string
	GetLoad() (map[model.Device]model.LoadSample, error)
}

// MonitorFactory builds a monitor restricted to devices. An empty device
// list means every device the monitor can see.
type MonitorFactory func(devices []model.Device) (LoadMonitor, error)

// Repository holds all registered monitor constructors.
type Repository struct {
	factories map[string]MonitorFactory
}

// NewRepository creates a repository with the default monitors rooted at
// procfsRoot.
func NewRepository(procfsRoot string) *Repository {
	r := &Repository{factories: make(map[string]MonitorFactory)}
	r.Register("disk", func(devices []model.Device) (LoadMonitor, error) {
		return NewDiskMonitor(procfsRoot, devices), nil
	})
	return r
}

// Register adds or replaces a monitor constructor.
func (r *Repository) Register(name string, f MonitorFactory) {
	r.factories[name] = f
}

// Create builds the named monitor for devices.
func (r *Repository) Create(name string, devices []model.Device) (LoadMonitor, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown monitor %q", name)
	}
	return f(devices)
}

// Names returns the registered monitor names.
func (r *Repository) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
