package units

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/xtune/collector"
	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/plugins"
	"github.com/ftahirops/xtune/storage"
)

type recorder struct{ calls []string }

func (r *recorder) add(s string) { r.calls = append(r.calls, s) }

type fakeInstance struct {
	name    string
	devices []model.Device
	rec     *recorder
	fail    error
	panics  bool
}

func (i *fakeInstance) Name() string            { return i.name }
func (i *fakeInstance) Devices() []model.Device { return i.devices }

func (i *fakeInstance) ApplyTuning() error   { return i.do("apply") }
func (i *fakeInstance) UpdateTuning() error  { return i.do("update") }
func (i *fakeInstance) UnapplyTuning() error { return i.do("unapply") }

func (i *fakeInstance) Status() []model.DeviceStatus {
	return []model.DeviceStatus{{Instance: i.name}}
}

func (i *fakeInstance) do(op string) error {
	i.rec.add(op + ":" + i.name)
	if i.panics {
		panic("boom")
	}
	return i.fail
}

type fakePlugin struct {
	name  string
	free  []model.Device
	rec   *recorder
	insts map[string]*fakeInstance
	fail  map[string]error
	panic map[string]bool
}

func (p *fakePlugin) Name() string { return p.name }

func (p *fakePlugin) CreateInstance(name string, devices []model.Device, _ map[string]string) (plugins.Instance, error) {
	p.rec.add("create:" + name)
	inst := &fakeInstance{name: name, devices: devices, rec: p.rec, fail: p.fail[name], panics: p.panic[name]}
	p.insts[name] = inst
	return inst, nil
}

func (p *fakePlugin) AssignFreeDevices(inst plugins.Instance) {
	p.rec.add("assign:" + inst.Name())
	fi := p.insts[inst.Name()]
	if len(fi.devices) == 0 {
		fi.devices = p.free
		p.free = nil
	}
}

func (p *fakePlugin) Cleanup() { p.rec.add("cleanup:" + p.name) }

type fakeRepo struct {
	rec     *recorder
	plugins map[string]*fakePlugin
}

func (r *fakeRepo) Create(name string) (plugins.Plugin, error) {
	p, ok := r.plugins[name]
	if !ok {
		return nil, plugins.ErrUnknownPlugin
	}
	return p, nil
}

func newFakeRepo(types ...string) *fakeRepo {
	r := &fakeRepo{rec: &recorder{}, plugins: map[string]*fakePlugin{}}
	for _, t := range types {
		r.plugins[t] = &fakePlugin{
			name:  t,
			rec:   r.rec,
			insts: map[string]*fakeInstance{},
			fail:  map[string]error{},
			panic: map[string]bool{},
		}
	}
	return r
}

func TestCreateGroupsAndAssignsInReverse(t *testing.T) {
	repo := newFakeRepo("disk", "cpu")
	repo.plugins["disk"].free = []model.Device{"d1", "d2"}
	m := NewManager(repo, nil)

	m.Create([]model.InstanceConfig{
		{Name: "A", Type: "disk", Enabled: true},
		{Name: "off", Type: "disk", Enabled: false},
		{Name: "C", Type: "cpu", Enabled: true},
		{Name: "B", Type: "disk", Enabled: true},
	})

	assert.Equal(t, []string{
		"create:A", "create:B", "assign:B", "assign:A",
		"create:C", "assign:C",
	}, repo.rec.calls)

	names := []string{}
	for _, inst := range m.Instances() {
		names = append(names, inst.Name())
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
	assert.Len(t, m.Plugins(), 2)

	disk := repo.plugins["disk"]
	assert.Equal(t, []model.Device{"d1", "d2"}, disk.insts["B"].devices)
	assert.Empty(t, disk.insts["A"].devices)
}

func TestCreateSkipsBrokenPlugin(t *testing.T) {
	repo := newFakeRepo("disk")
	m := NewManager(repo, nil)

	m.Create([]model.InstanceConfig{
		{Name: "x", Type: "usb", Enabled: true},
		{Name: "y", Type: "disk", Enabled: true},
	})
	require.Len(t, m.Instances(), 1)
	assert.Equal(t, "y", m.Instances()[0].Name())
}

func TestTuningIsolatesFailures(t *testing.T) {
	repo := newFakeRepo("disk")
	repo.plugins["disk"].fail["a"] = errors.New("device gone")
	repo.plugins["disk"].panic["b"] = true
	metrics := engine.NewMetrics()
	m := NewManager(repo, metrics)
	m.Create([]model.InstanceConfig{
		{Name: "a", Type: "disk", Enabled: true},
		{Name: "b", Type: "disk", Enabled: true},
		{Name: "c", Type: "disk", Enabled: true},
	})
	repo.rec.calls = nil

	err := m.UpdateTuning()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device gone")
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, []string{"update:a", "update:b", "update:c"}, repo.rec.calls)

	repo.rec.calls = nil
	_ = m.StartTuning()
	_ = m.StopTuning()
	assert.Equal(t, []string{
		"apply:a", "apply:b", "apply:c",
		"unapply:a", "unapply:b", "unapply:c",
	}, repo.rec.calls)
}

func TestStatusCollectsReporters(t *testing.T) {
	repo := newFakeRepo("disk")
	m := NewManager(repo, nil)
	m.Create([]model.InstanceConfig{
		{Name: "a", Type: "disk", Enabled: true},
		{Name: "b", Type: "disk", Enabled: true},
	})
	st := m.Status()
	require.Len(t, st, 2)
	assert.Equal(t, "a", st[0].Instance)
}

func TestDestroyAll(t *testing.T) {
	empty := NewManager(newFakeRepo(), nil)
	assert.NotPanics(t, empty.DestroyAll)

	repo := newFakeRepo("disk", "cpu")
	m := NewManager(repo, nil)
	m.Create([]model.InstanceConfig{
		{Name: "a", Type: "cpu", Enabled: true},
		{Name: "b", Type: "disk", Enabled: true},
	})
	repo.rec.calls = nil

	m.DestroyAll()
	assert.Equal(t, []string{"cleanup:cpu", "cleanup:disk"}, repo.rec.calls)
	assert.Empty(t, m.Plugins())
	assert.Empty(t, m.Instances())
	assert.NoError(t, m.UpdateTuning())
}

type listed []model.Device

func (l listed) ListEligibleDevices() ([]model.Device, error) { return l, nil }

type nopScheduler struct{}

func (nopScheduler) Read(model.Device) (string, error) { return "none", nil }
func (nopScheduler) Write(model.Device, string) error  { return nil }

type nopPower struct{}

func (nopPower) SetProfile(model.Device, model.PowerSetting) error { return nil }

func TestCreateWithDiskPlugin(t *testing.T) {
	repo := plugins.NewRepository(plugins.Env{
		Devices:   listed{"d1", "d2"},
		Monitors:  collector.NewRepository(t.TempDir()),
		Store:     storage.NewMemoryStore(),
		Scheduler: nopScheduler{},
		Power:     nopPower{},
	})
	m := NewManager(repo, nil)
	m.Create([]model.InstanceConfig{
		{Name: "A", Type: "disk", Enabled: true},
		{Name: "B", Type: "disk", Enabled: true},
	})

	insts := m.Instances()
	require.Len(t, insts, 2)
	assert.Empty(t, insts[0].Devices())
	assert.Equal(t, []model.Device{"d1", "d2"}, insts[1].Devices())
}
