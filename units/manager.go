// Package units creates plugin instances from configuration and drives
// their tuning lifecycle.
package units

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/plugins"
)

// PluginCreator instantiates plugins by type name.
type PluginCreator interface {
	Create(name string) (plugins.Plugin, error)
}

// Manager creates plugin instances and keeps track of them.
type Manager struct {
	repo      PluginCreator
	metrics   *engine.Metrics
	plugins   []plugins.Plugin
	instances []plugins.Instance
	log       *logrus.Entry
}

// NewManager creates an empty manager. metrics may be nil.
func NewManager(repo PluginCreator, metrics *engine.Metrics) *Manager {
	return &Manager{
		repo:    repo,
		metrics: metrics,
		log:     logrus.WithField("component", "units"),
	}
}

// Plugins returns the live plugins in creation order.
func (m *Manager) Plugins() []plugins.Plugin { return m.plugins }

// Instances returns the live instances in registration order.
func (m *Manager) Instances() []plugins.Instance { return m.instances }

// Create builds plugins and instances from configs. Plugins that fail to
// initialize are skipped together with their instances.
func (m *Manager) Create(configs []model.InstanceConfig) {
	// group instances by plugin, keeping first-seen order of types
	var order []string
	byPlugin := make(map[string][]model.InstanceConfig)
	for _, cfg := range configs {
		if !cfg.Enabled {
			m.log.Debugf("skipping disabled instance '%s'", cfg.Name)
			continue
		}
		if _, ok := byPlugin[cfg.Type]; !ok {
			order = append(order, cfg.Type)
		}
		byPlugin[cfg.Type] = append(byPlugin[cfg.Type], cfg)
	}

	for _, name := range order {
		plugin, err := m.repo.Create(name)
		if err != nil {
			m.log.Errorf("failed to initialize plugin %s (%v)", name, err)
			continue
		}
		m.plugins = append(m.plugins, plugin)

		var created []plugins.Instance
		for _, cfg := range byPlugin[name] {
			m.log.Debugf("creating '%s' instance '%s'", cfg.Type, cfg.Name)
			inst, err := plugin.CreateInstance(cfg.Name, cfg.Devices, cfg.Options)
			if err != nil {
				m.log.Errorf("failed to create instance '%s': %v", cfg.Name, err)
				continue
			}
			created = append(created, inst)
		}

		// Later instances get first pick of the free devices. This mirrors
		// the historical behaviour and is pending product confirmation.
		for i := len(created) - 1; i >= 0; i-- {
			m.log.Debugf("assigning devices to '%s'", created[i].Name())
			plugin.AssignFreeDevices(created[i])
		}

		m.instances = append(m.instances, created...)
	}
}

// DestroyAll cleans up every plugin and forgets all plugins and instances.
func (m *Manager) DestroyAll() {
	for _, p := range m.plugins {
		m.log.Debugf("cleaning plugin '%s'", p.Name())
		m.guard(p.Name(), "cleanup", func() error {
			p.Cleanup()
			return nil
		})
	}
	m.plugins = nil
	m.instances = nil
}

// StartTuning applies the tuning of every instance.
func (m *Manager) StartTuning() error {
	return m.each("apply", plugins.Instance.ApplyTuning)
}

// UpdateTuning runs one update pass over every instance.
func (m *Manager) UpdateTuning() error {
	return m.each("update", plugins.Instance.UpdateTuning)
}

// StopTuning unapplies the tuning of every instance.
func (m *Manager) StopTuning() error {
	return m.each("unapply", plugins.Instance.UnapplyTuning)
}

// Status collects the device state of every instance that reports one.
func (m *Manager) Status() []model.DeviceStatus {
	var out []model.DeviceStatus
	for _, inst := range m.instances {
		if r, ok := inst.(plugins.StatusReporter); ok {
			out = append(out, r.Status()...)
		}
	}
	return out
}

func (m *Manager) each(phase string, op func(plugins.Instance) error) error {
	var errs []error
	for _, inst := range m.instances {
		if err := m.guard(inst.Name(), phase, func() error { return op(inst) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// guard runs fn, turning errors and panics into a logged, wrapped error so
// one instance cannot stop the others.
func (m *Manager) guard(name, phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s '%s': panic: %v", phase, name, r)
		}
		if err != nil {
			m.metrics.RecordInstanceError(name, phase)
			m.log.Error(err)
		}
	}()
	if e := fn(); e != nil {
		return fmt.Errorf("%s '%s': %w", phase, name, e)
	}
	return nil
}
