package plugins

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ftahirops/xtune/collector"
	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
)

// OptionElevator names the IO scheduler to select while tuning.
const OptionElevator = "elevator"

func defaultDiskOptions() map[string]string {
	return map[string]string{
		OptionElevator: "",
	}
}

// DiskPlugin spins idle disks down progressively and optionally overrides
// their IO scheduler.
type DiskPlugin struct {
	env       Env
	profile   model.PowerProfile
	guard     *engine.ElevatorGuard
	pool      *DevicePool
	instances []*DiskInstance
	byName    map[string]*DiskInstance
	log       *logrus.Entry
}

// NewDiskPlugin discovers the eligible disks. It fails with ErrUnsupported
// when the devices cannot be listed.
func NewDiskPlugin(env Env) (*DiskPlugin, error) {
	if env.Devices == nil || env.Monitors == nil || env.Scheduler == nil || env.Store == nil || env.Power == nil {
		return nil, fmt.Errorf("disk plugin: incomplete environment")
	}
	devices, err := env.Devices.ListEligibleDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	profile := env.Profile
	if profile.Levels() == 0 {
		profile = model.DefaultPowerProfile()
	}

	p := &DiskPlugin{
		env:     env,
		profile: profile,
		guard:   engine.NewElevatorGuard(env.Scheduler, env.Store, env.Metrics),
		pool:    NewDevicePool("disk", devices),
		byName:  make(map[string]*DiskInstance),
		log:     logrus.WithField("plugin", "disk"),
	}
	p.log.Debugf("eligible devices: %v", devices)
	return p, nil
}

func (p *DiskPlugin) Name() string { return "disk" }

// CreateInstance registers an instance and claims its explicit devices.
func (p *DiskPlugin) CreateInstance(name string, devices []model.Device, options map[string]string) (Instance, error) {
	if _, dup := p.byName[name]; dup {
		return nil, fmt.Errorf("disk plugin: duplicate instance %q", name)
	}

	opts := defaultDiskOptions()
	for k, v := range options {
		if _, known := opts[k]; !known {
			p.log.Warnf("instance '%s': unknown option %q ignored", name, k)
			continue
		}
		opts[k] = v
	}

	inst := &DiskInstance{
		plugin:      p,
		name:        name,
		explicit:    len(devices) > 0,
		elevator:    opts[OptionElevator],
		elevatorSet: make(map[model.Device]bool),
		stats:       engine.NewLoadSampleStore(),
		states:      make(map[model.Device]*deviceState),
		log:         p.log.WithField("instance", name),
	}
	if inst.explicit {
		inst.devices = p.pool.Claim(name, devices)
	}
	p.instances = append(p.instances, inst)
	p.byName[name] = inst
	return inst, nil
}

// AssignFreeDevices gives an instance without explicit devices every device
// still free in the pool.
func (p *DiskPlugin) AssignFreeDevices(inst Instance) {
	di, ok := p.byName[inst.Name()]
	if !ok || di != inst {
		p.log.Warnf("instance '%s' does not belong to this plugin", inst.Name())
		return
	}
	if di.explicit {
		return
	}
	di.devices = p.pool.TakeAll(di.name)
	di.log.Debugf("assigned devices %v", di.devices)
}

// Cleanup restores every device of every instance.
func (p *DiskPlugin) Cleanup() {
	p.log.Debug("cleanup")
	for _, inst := range p.instances {
		if err := inst.teardown(); err != nil {
			inst.log.Errorf("cleanup: %v", err)
		}
	}
}

// Guard exposes the plugin's elevator guard.
func (p *DiskPlugin) Guard() *engine.ElevatorGuard { return p.guard }

type deviceState struct {
	ctl        *engine.IdleLevelController
	load       engine.DeviceStats
	levelSince time.Time
	// applied is the level last set successfully on the hardware, -1 when
	// unknown after a failed command.
	applied int
}

// DiskInstance is one set of disks tuned together.
type DiskInstance struct {
	plugin   *DiskPlugin
	name     string
	devices  []model.Device
	explicit bool
	elevator string
	// elevatorSet holds the devices the override was applied to since the
	// last ApplyTuning.
	elevatorSet map[model.Device]bool
	monitor     collector.LoadMonitor
	stats       *engine.LoadSampleStore
	states      map[model.Device]*deviceState
	log         *logrus.Entry
}

func (i *DiskInstance) Name() string { return i.name }

// Devices returns the devices owned by the instance.
func (i *DiskInstance) Devices() []model.Device {
	return append([]model.Device(nil), i.devices...)
}

// Elevator returns the scheduler override requested for the instance.
func (i *DiskInstance) Elevator() string { return i.elevator }

func (i *DiskInstance) ensureMonitor() error {
	if i.monitor != nil {
		return nil
	}
	m, err := i.plugin.env.Monitors.Create("disk", i.devices)
	if err != nil {
		return fmt.Errorf("create load monitor: %w", err)
	}
	i.monitor = m
	return nil
}

// ApplyTuning prepares the instance; the elevator is applied to each device
// on the first update that reports it.
func (i *DiskInstance) ApplyTuning() error {
	i.elevatorSet = make(map[model.Device]bool)
	if len(i.devices) == 0 {
		i.log.Info("no devices assigned")
		return nil
	}
	i.log.Infof("tuning devices %v", i.devices)
	return i.ensureMonitor()
}

// UpdateTuning runs one control step for every device.
func (i *DiskInstance) UpdateTuning() error {
	if len(i.devices) == 0 {
		return nil
	}
	if err := i.ensureMonitor(); err != nil {
		return err
	}
	load, err := i.monitor.GetLoad()
	if err != nil {
		return fmt.Errorf("get load: %w", err)
	}

	devices := make([]model.Device, 0, len(load))
	for dev := range load {
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(a, b int) bool { return devices[a] < devices[b] })

	for _, dev := range devices {
		if !i.elevatorSet[dev] {
			i.plugin.guard.Apply(dev, i.elevator)
			i.elevatorSet[dev] = true
		}
		i.updateDevice(dev, load[dev])
	}
	return nil
}

func (i *DiskInstance) updateDevice(dev model.Device, sample model.LoadSample) {
	log := i.log.WithField("device", dev)

	st, err := i.stats.Ingest(dev, sample)
	if err != nil {
		log.Errorf("skipping tick: %v", err)
		return
	}

	ds := i.state(dev)
	ds.load = st
	from := ds.ctl.Level()
	level, changed := ds.ctl.Tick(st.ReadLoad, st.WriteLoad)
	if changed {
		ds.levelSince = time.Now()
		i.setLevel(dev, ds, from, level, st)
	}
	i.plugin.env.Metrics.ObserveLoad(i.name, dev, level, st.ReadLoad, st.WriteLoad)

	idle := ds.ctl.State()
	log.Debugf("%s load: read %f, write %f", dev, st.ReadLoad, st.WriteLoad)
	log.Debugf("%s idle: read %d, write %d, level %d", dev, idle.ReadIdleTicks, idle.WriteIdleTicks, idle.Level)
}

func (i *DiskInstance) state(dev model.Device) *deviceState {
	ds, ok := i.states[dev]
	if !ok {
		ds = &deviceState{
			ctl:        engine.NewIdleLevelController(i.plugin.profile.Levels()),
			levelSince: time.Now(),
		}
		i.states[dev] = ds
	}
	return ds
}

func (i *DiskInstance) setLevel(dev model.Device, ds *deviceState, from, to int, st engine.DeviceStats) {
	setting := i.plugin.profile.At(to)
	i.log.WithField("device", dev).Debugf("Level changed to %d (apm %d, spindown %d)", to, setting.APM, setting.Spindown)

	evt := engine.NewLevelEvent(i.name, dev, from, to, setting)
	evt.ReadLoad = st.ReadLoad
	evt.WriteLoad = st.WriteLoad

	if err := i.plugin.env.Power.SetProfile(dev, setting); err != nil {
		i.log.WithField("device", dev).Errorf("setting power level %d: %v", to, err)
		evt.Error = err.Error()
		ds.applied = -1
	} else {
		ds.applied = to
	}

	i.plugin.env.Metrics.RecordTransition(evt)
	if i.plugin.env.Events != nil {
		if err := i.plugin.env.Events.Write(evt); err != nil {
			i.log.Warnf("writing level event: %v", err)
		}
	}
}

// UnapplyTuning restores the devices of this instance.
func (i *DiskInstance) UnapplyTuning() error {
	return i.teardown()
}

// teardown puts every device back to full power where needed and reverts
// the elevator of every device. It never stops at the first failure.
func (i *DiskInstance) teardown() error {
	var errs []error
	active := i.plugin.profile.At(0)

	for _, dev := range i.knownDevices() {
		ds, ok := i.states[dev]
		if ok && (ds.ctl.Level() > 0 || ds.applied != 0) {
			i.log.WithField("device", dev).Debugf("restoring full power on %s", dev)
			if err := i.plugin.env.Power.SetProfile(dev, active); err != nil {
				i.plugin.env.Metrics.RecordPowerError(dev)
				errs = append(errs, fmt.Errorf("restore power of %s: %w", dev, err))
				ds.applied = -1
			} else {
				ds.applied = 0
			}
			ds.ctl.Reset()
			ds.levelSince = time.Now()
			i.plugin.env.Metrics.ObserveLoad(i.name, dev, 0, ds.load.ReadLoad, ds.load.WriteLoad)
		}
		i.plugin.guard.Revert(dev)
	}
	i.elevatorSet = make(map[model.Device]bool)
	return errors.Join(errs...)
}

// knownDevices is the union of assigned and observed devices, sorted.
func (i *DiskInstance) knownDevices() []model.Device {
	seen := make(map[model.Device]bool, len(i.devices)+len(i.states))
	var out []model.Device
	for _, d := range i.devices {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	for d := range i.states {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Status reports the state of every observed device.
func (i *DiskInstance) Status() []model.DeviceStatus {
	var out []model.DeviceStatus
	for _, dev := range i.knownDevices() {
		st := model.DeviceStatus{
			Instance: i.name,
			Device:   dev,
			Levels:   i.plugin.profile.Levels(),
		}
		if ds, ok := i.states[dev]; ok {
			idle := ds.ctl.State()
			st.Level = idle.Level
			st.ReadIdleTicks = idle.ReadIdleTicks
			st.WriteIdleTicks = idle.WriteIdleTicks
			st.ReadLoad = ds.load.ReadLoad
			st.WriteLoad = ds.load.WriteLoad
			st.LevelSince = ds.levelSince
		}
		if rec, ok := i.plugin.guard.Record(dev); ok {
			st.Elevator = rec.Applied
			st.SavedElevator = rec.SavedScheduler
			st.ElevatorSince = rec.AppliedAt
		}
		out = append(out, st)
	}
	return out
}
