package engine

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ftahirops/xtune/model"
)

// Metrics tracks the daemon's Prometheus metrics.
//
// All methods are safe on a nil *Metrics so components can run without an
// exporter.
type Metrics struct {
	registry *prometheus.Registry

	// PowerLevel is the current power level per device
	PowerLevel *prometheus.GaugeVec

	// ReadLoad and WriteLoad are the normalized loads of the last tick
	ReadLoad  *prometheus.GaugeVec
	WriteLoad *prometheus.GaugeVec

	// LevelTransitions counts level changes by direction
	LevelTransitions *prometheus.CounterVec

	// ElevatorOps counts scheduler overrides and reverts by result
	ElevatorOps *prometheus.CounterVec

	// PowerControlErrors counts failed power-control invocations
	PowerControlErrors *prometheus.CounterVec

	// TickDuration tracks how long one full update pass takes
	TickDuration prometheus.Histogram

	// InstanceErrors counts failed instance operations by phase
	InstanceErrors *prometheus.CounterVec
}

// NewMetrics creates metrics registered on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PowerLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "xtune_device_power_level",
				Help: "Current power level of the device (0 = fully active)",
			},
			[]string{"instance", "device"},
		),
		ReadLoad: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "xtune_device_read_load",
				Help: "Normalized read load of the last tick",
			},
			[]string{"instance", "device"},
		),
		WriteLoad: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "xtune_device_write_load",
				Help: "Normalized write load of the last tick",
			},
			[]string{"instance", "device"},
		),
		LevelTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xtune_level_transitions_total",
				Help: "Power level transitions by direction",
			},
			[]string{"device", "direction"}, // "promote", "demote"
		),
		ElevatorOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xtune_elevator_operations_total",
				Help: "IO scheduler overrides and reverts by result",
			},
			[]string{"op", "result"}, // op: "apply", "revert"; result: "ok", "error"
		),
		PowerControlErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xtune_power_control_errors_total",
				Help: "Failed power-control invocations",
			},
			[]string{"device"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xtune_tick_duration_seconds",
				Help:    "Duration of one tuning update pass",
				Buckets: prometheus.DefBuckets,
			},
		),
		InstanceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xtune_instance_errors_total",
				Help: "Failed instance operations by phase",
			},
			[]string{"instance", "phase"},
		),
	}
	reg.MustRegister(
		m.PowerLevel,
		m.ReadLoad,
		m.WriteLoad,
		m.LevelTransitions,
		m.ElevatorOps,
		m.PowerControlErrors,
		m.TickDuration,
		m.InstanceErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLoad records the per-tick state of a device.
func (m *Metrics) ObserveLoad(instance string, device model.Device, level int, readLoad, writeLoad float64) {
	if m == nil {
		return
	}
	dev := string(device)
	m.PowerLevel.WithLabelValues(instance, dev).Set(float64(level))
	m.ReadLoad.WithLabelValues(instance, dev).Set(readLoad)
	m.WriteLoad.WithLabelValues(instance, dev).Set(writeLoad)
}

// RecordTransition counts one level change.
func (m *Metrics) RecordTransition(e model.LevelEvent) {
	if m == nil {
		return
	}
	m.LevelTransitions.WithLabelValues(string(e.Device), e.Direction()).Inc()
	if e.Error != "" {
		m.PowerControlErrors.WithLabelValues(string(e.Device)).Inc()
	}
}

// RecordElevator counts one elevator operation.
func (m *Metrics) RecordElevator(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ElevatorOps.WithLabelValues(op, result).Inc()
}

// RecordPowerError counts a failed power-control call outside a transition.
func (m *Metrics) RecordPowerError(device model.Device) {
	if m == nil {
		return
	}
	m.PowerControlErrors.WithLabelValues(string(device)).Inc()
}

// RecordInstanceError counts one failed instance operation.
func (m *Metrics) RecordInstanceError(instance, phase string) {
	if m == nil {
		return
	}
	m.InstanceErrors.WithLabelValues(instance, phase).Inc()
}

// ObserveTick records the duration of one update pass.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(d.Seconds())
}
