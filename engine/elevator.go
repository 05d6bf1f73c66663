package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/storage"
)

// ElevatorNamespace is the store namespace of elevator records.
const ElevatorNamespace = "disk"

// SchedulerIO reads and writes the IO scheduler of a block device.
type SchedulerIO interface {
	Read(device model.Device) (string, error)
	Write(device model.Device, scheduler string) error
}

// ElevatorGuard overrides a device's IO scheduler and guarantees the
// previous value can be restored, even after a crash, through a durable
// record kept in the store.
type ElevatorGuard struct {
	io      SchedulerIO
	store   storage.Store
	metrics *Metrics
	now     func() time.Time
	log     *logrus.Entry
}

// NewElevatorGuard creates a guard. metrics may be nil.
func NewElevatorGuard(io SchedulerIO, store storage.Store, metrics *Metrics) *ElevatorGuard {
	return &ElevatorGuard{
		io:      io,
		store:   store,
		metrics: metrics,
		now:     time.Now,
		log:     logrus.WithField("component", "elevator"),
	}
}

// Apply sets the device's scheduler to desired and remembers the previous
// one. A leftover record is reverted and discarded first. Returns false when
// desired is empty and nothing was applied. IO failures are logged only. A
// leftover record that cannot be reverted is kept as the authority for later
// reverts.
func (g *ElevatorGuard) Apply(device model.Device, desired string) bool {
	if rec, ok := g.Record(device); ok {
		if rec.Active() {
			if err := g.restore(rec); err != nil {
				// the device still carries an override; keep the saved value
				return g.reapply(device, rec, desired)
			}
		}
		if err := g.store.Delete(ElevatorNamespace, device); err != nil {
			g.log.WithField("device", device).Errorf("discarding elevator record: %v", err)
		}
	}

	if desired == "" {
		return false
	}

	saved, err := g.io.Read(device)
	if err != nil {
		g.log.WithField("device", device).Errorf("getting elevator of %s: %v", device, err)
	}
	if saved != "" {
		rec := model.ElevatorRecord{
			Device:         device,
			SavedScheduler: saved,
			Applied:        desired,
			AppliedAt:      g.now(),
		}
		if err := g.store.Set(ElevatorNamespace, rec); err != nil {
			g.log.WithField("device", device).Errorf("saving elevator record: %v", err)
		}
	} else {
		g.log.WithField("device", device).Warnf("current elevator unknown, override on %s will not be reverted", device)
	}

	g.log.WithField("device", device).Debugf("applying elevator: %s < %s", device, desired)
	err = g.io.Write(device, desired)
	if err != nil {
		g.log.WithField("device", device).Errorf("setting elevator on %s: %v", device, err)
	}
	g.metrics.RecordElevator("apply", err)
	return true
}

// reapply overrides the device again under an existing record, leaving its
// saved scheduler untouched.
func (g *ElevatorGuard) reapply(device model.Device, rec model.ElevatorRecord, desired string) bool {
	if desired == "" {
		return false
	}
	rec.Device = device
	rec.Applied = desired
	rec.AppliedAt = g.now()
	if err := g.store.Set(ElevatorNamespace, rec); err != nil {
		g.log.WithField("device", device).Errorf("saving elevator record: %v", err)
	}

	g.log.WithField("device", device).Debugf("applying elevator: %s < %s", device, desired)
	err := g.io.Write(device, desired)
	if err != nil {
		g.log.WithField("device", device).Errorf("setting elevator on %s: %v", device, err)
	}
	g.metrics.RecordElevator("apply", err)
	return true
}

// Revert restores the saved scheduler and deletes the record. It is a
// no-op without a record. If the write fails the record is kept so a later
// Revert can retry.
func (g *ElevatorGuard) Revert(device model.Device) {
	rec, ok := g.Record(device)
	if !ok {
		return
	}
	if !rec.Active() {
		_ = g.store.Delete(ElevatorNamespace, device)
		return
	}
	if err := g.restore(rec); err != nil {
		return
	}
	if err := g.store.Delete(ElevatorNamespace, device); err != nil {
		g.log.WithField("device", device).Errorf("deleting elevator record: %v", err)
	}
}

// RecoverAll reverts every persisted record. It returns the number of
// devices restored and the failures.
func (g *ElevatorGuard) RecoverAll() (int, error) {
	recs, err := g.store.List(ElevatorNamespace)
	if err != nil {
		return 0, fmt.Errorf("list elevator records: %w", err)
	}
	var errs []error
	restored := 0
	for _, rec := range recs {
		if !rec.Active() {
			_ = g.store.Delete(ElevatorNamespace, rec.Device)
			continue
		}
		if err := g.restore(rec); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := g.store.Delete(ElevatorNamespace, rec.Device); err != nil {
			errs = append(errs, fmt.Errorf("delete record of %s: %w", rec.Device, err))
			continue
		}
		restored++
	}
	return restored, errors.Join(errs...)
}

// Record returns the persisted record of device, if any.
func (g *ElevatorGuard) Record(device model.Device) (model.ElevatorRecord, bool) {
	rec, err := g.store.Get(ElevatorNamespace, device)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.log.WithField("device", device).Errorf("reading elevator record: %v", err)
		}
		return model.ElevatorRecord{}, false
	}
	return rec, true
}

func (g *ElevatorGuard) restore(rec model.ElevatorRecord) error {
	g.log.WithField("device", rec.Device).Debugf("applying elevator: %s < %s", rec.Device, rec.SavedScheduler)
	err := g.io.Write(rec.Device, rec.SavedScheduler)
	g.metrics.RecordElevator("revert", err)
	if err != nil {
		g.log.WithField("device", rec.Device).Errorf("setting elevator on %s: %v", rec.Device, err)
		return fmt.Errorf("restore elevator of %s: %w", rec.Device, err)
	}
	return nil
}
