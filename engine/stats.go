package engine

import (
	"errors"
	"fmt"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/util"
)

// ErrSampleWidth is returned for samples that do not carry exactly
// model.LoadSampleWidth counters.
var ErrSampleWidth = errors.New("malformed load sample")

// DeviceStats is the rolling statistic of one device.
type DeviceStats struct {
	Previous model.LoadSample
	Current  model.LoadSample
	// MaxDelta holds the largest per-field increment seen so far.
	// Every entry starts at 1 and never decreases.
	MaxDelta  [model.LoadSampleWidth]uint64
	Diff      [model.LoadSampleWidth]uint64
	ReadLoad  float64
	WriteLoad float64
}

func (s *DeviceStats) clone() DeviceStats {
	c := *s
	c.Previous = append(model.LoadSample(nil), s.Previous...)
	c.Current = append(model.LoadSample(nil), s.Current...)
	return c
}

// LoadSampleStore turns raw cumulative samples into normalized read/write
// load per device.
type LoadSampleStore struct {
	devices map[model.Device]*DeviceStats
}

// NewLoadSampleStore creates an empty store.
func NewLoadSampleStore() *LoadSampleStore {
	return &LoadSampleStore{devices: make(map[model.Device]*DeviceStats)}
}

// Ingest records a new sample for device and returns the updated stats.
// The first sample of a device only primes the state; its loads are 0.
func (s *LoadSampleStore) Ingest(device model.Device, sample model.LoadSample) (DeviceStats, error) {
	if len(sample) != model.LoadSampleWidth {
		return DeviceStats{}, fmt.Errorf("%s: %w: got %d fields, want %d",
			device, ErrSampleWidth, len(sample), model.LoadSampleWidth)
	}
	sample = append(model.LoadSample(nil), sample...)

	st, ok := s.devices[device]
	if !ok {
		st = &DeviceStats{Previous: sample, Current: sample}
		for i := range st.MaxDelta {
			st.MaxDelta[i] = 1
		}
		s.devices[device] = st
		return st.clone(), nil
	}

	st.Previous = st.Current
	st.Current = sample
	for i := range st.Diff {
		d := util.Delta(st.Previous[i], st.Current[i])
		st.Diff[i] = d
		if d > st.MaxDelta[i] {
			st.MaxDelta[i] = d
		}
	}
	st.ReadLoad = util.Ratio(st.Diff[model.ReadLoadField], st.MaxDelta[model.ReadLoadField])
	st.WriteLoad = util.Ratio(st.Diff[model.WriteLoadField], st.MaxDelta[model.WriteLoadField])
	return st.clone(), nil
}

// Stats returns the current stats of device.
func (s *LoadSampleStore) Stats(device model.Device) (DeviceStats, bool) {
	st, ok := s.devices[device]
	if !ok {
		return DeviceStats{}, false
	}
	return st.clone(), true
}
