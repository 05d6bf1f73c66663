package collector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/util"
)

// DiskMonitor reads per-device counters from /proc/diskstats.
type DiskMonitor struct {
	path    string
	devices map[model.Device]bool
}

// NewDiskMonitor creates a monitor for devices under procfsRoot.
func NewDiskMonitor(procfsRoot string, devices []model.Device) *DiskMonitor {
	m := &DiskMonitor{path: filepath.Join(procfsRoot, "diskstats")}
	if len(devices) > 0 {
		m.devices = make(map[model.Device]bool, len(devices))
		for _, d := range devices {
			m.devices[d] = true
		}
	}
	return m
}

func (m *DiskMonitor) Name() string { return "disk" }

// GetLoad returns the current counters of every monitored device present in
// diskstats. Lines that fail to parse are passed through truncated so the
// consumer can report the contract violation per device.
func (m *DiskMonitor) GetLoad() (map[model.Device]model.LoadSample, error) {
	lines, err := util.ReadFileLines(m.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.path, err)
	}

	load := make(map[model.Device]model.LoadSample)
	for _, line := range lines {
		name, sample, ok := parseDiskstatLine(line)
		if !ok {
			continue
		}
		if m.devices != nil && !m.devices[name] {
			continue
		}
		load[name] = sample
	}
	return load, nil
}

// parseDiskstatLine parses a line from /proc/diskstats.
// Format: major minor name reads_completed reads_merged sectors_read read_time
//
//	writes_completed writes_merged sectors_written write_time ios_in_progress io_time weighted_io_time
//
// Newer kernels append discard and flush counters, which are ignored.
func parseDiskstatLine(line string) (model.Device, model.LoadSample, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", nil, false
	}
	name := model.Device(fields[2])
	counters := fields[3:]
	if len(counters) > model.LoadSampleWidth {
		counters = counters[:model.LoadSampleWidth]
	}
	sample := make(model.LoadSample, 0, len(counters))
	for _, f := range counters {
		v, err := util.ParseUint64(f)
		if err != nil {
			break
		}
		sample = append(sample, v)
	}
	return name, sample, true
}
