package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/xtune/config"
	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/storage"
)

type recordedPower struct {
	mu    sync.Mutex
	calls []model.PowerSetting
}

func (p *recordedPower) SetProfile(_ model.Device, s model.PowerSetting) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, s)
	return nil
}

func (p *recordedPower) last() (model.PowerSetting, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return model.PowerSetting{}, 0
	}
	return p.calls[len(p.calls)-1], len(p.calls)
}

type host struct {
	sysfs  string
	procfs string
	data   string
}

func newHost(t *testing.T) host {
	t.Helper()
	root := t.TempDir()
	h := host{
		sysfs:  filepath.Join(root, "sys"),
		procfs: filepath.Join(root, "proc"),
		data:   filepath.Join(root, "data"),
	}
	for _, dir := range []string{
		filepath.Join(h.sysfs, "block", "sdb", "device"),
		filepath.Join(h.sysfs, "block", "sdb", "queue"),
		h.procfs,
	} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(h.sysfs, "block", "sdb", "device", "vendor"), []byte("ATA     \n"), 0644))
	require.NoError(t, os.WriteFile(h.schedulerPath(), []byte("mq-deadline\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.procfs, "diskstats"),
		[]byte("   8      16 sdb 100 0 800 10 40 0 320 5 0 15 15\n"), 0644))
	return h
}

func (h host) schedulerPath() string {
	return filepath.Join(h.sysfs, "block", "sdb", "queue", "scheduler")
}

func (h host) scheduler(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile(h.schedulerPath())
	require.NoError(t, err)
	return string(raw)
}

func (h host) config() *config.Config {
	cfg := config.Default()
	cfg.Interval = 10 * time.Millisecond
	cfg.DataDir = h.data
	cfg.SysfsRoot = h.sysfs
	cfg.ProcfsRoot = h.procfs
	cfg.Instances = []model.InstanceConfig{{
		Name:    "disk",
		Type:    "disk",
		Enabled: true,
		Options: map[string]string{"elevator": "none"},
	}}
	return cfg
}

func TestDaemonLifecycle(t *testing.T) {
	h := newHost(t)
	power := &recordedPower{}

	d, err := New(h.config(), WithPower(power))
	require.NoError(t, err)
	require.NoError(t, d.Start())

	for i := 0; i < engine.PromoteIdleTicks; i++ {
		require.NoError(t, d.Tick())
	}
	assert.Equal(t, "none", h.scheduler(t))

	setting, calls := power.last()
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.DefaultPowerProfile().At(1), setting)

	st, err := ReadStatus(StatusPath(h.data))
	require.NoError(t, err)
	assert.Equal(t, uint64(engine.PromoteIdleTicks), st.Ticks)
	assert.Equal(t, []string{"disk"}, st.Instances)
	require.Len(t, st.Devices, 1)
	assert.Equal(t, model.Device("sdb"), st.Devices[0].Device)
	assert.Equal(t, 1, st.Devices[0].Level)
	assert.Equal(t, "none", st.Devices[0].Elevator)
	assert.Equal(t, "mq-deadline", st.Devices[0].SavedElevator)

	events, err := engine.ReadEventLog(EventsPath(h.data))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "promote", events[0].Direction())

	require.NoError(t, d.Close())
	assert.Equal(t, "mq-deadline", h.scheduler(t))
	setting, calls = power.last()
	assert.Equal(t, 2, calls)
	assert.Equal(t, model.DefaultPowerProfile().At(0), setting)
}

func TestNewRecoversLeftoverElevator(t *testing.T) {
	h := newHost(t)
	require.NoError(t, os.MkdirAll(h.data, 0755))

	store, err := storage.Open(storage.Config{Backend: storage.BackendFile}, h.data)
	require.NoError(t, err)
	require.NoError(t, store.Set(engine.ElevatorNamespace, model.ElevatorRecord{
		Device:         "sdb",
		SavedScheduler: "bfq",
		Applied:        "none",
		AppliedAt:      time.Now(),
	}))
	require.NoError(t, store.Close())

	cfg := h.config()
	cfg.Instances[0].Enabled = false
	d, err := New(cfg, WithPower(&recordedPower{}))
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "bfq", h.scheduler(t))
	recs, err := d.store.List(engine.ElevatorNamespace)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHost(t)
	power := &recordedPower{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, h.config(), WithPower(power)) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(StatusPath(h.data))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	pid, alive := RunningPID(PIDPath(h.data))
	assert.True(t, alive)
	assert.Equal(t, os.Getpid(), pid)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	_, err := os.Stat(PIDPath(h.data))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "mq-deadline", h.scheduler(t))
}

func TestRunRefusesSecondInstance(t *testing.T) {
	h := newHost(t)
	require.NoError(t, os.MkdirAll(h.data, 0755))
	// pid 1 always exists
	require.NoError(t, os.WriteFile(PIDPath(h.data), []byte("1\n"), 0644))

	err := Run(context.Background(), h.config(), WithPower(&recordedPower{}))
	assert.ErrorContains(t, err, "already running")
}

func TestStatusRoundTripMissing(t *testing.T) {
	_, err := ReadStatus(filepath.Join(t.TempDir(), StatusFile))
	assert.True(t, os.IsNotExist(err))
}
