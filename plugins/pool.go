package plugins

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ftahirops/xtune/model"
)

// DevicePool tracks which eligible devices are still unclaimed. A device is
// owned by at most one instance.
type DevicePool struct {
	eligible map[model.Device]bool
	owner    map[model.Device]string
	log      *logrus.Entry
}

// NewDevicePool creates a pool where every device in eligible is free.
func NewDevicePool(plugin string, eligible []model.Device) *DevicePool {
	p := &DevicePool{
		eligible: make(map[model.Device]bool, len(eligible)),
		owner:    make(map[model.Device]string),
		log:      logrus.WithField("plugin", plugin),
	}
	for _, d := range eligible {
		p.eligible[d] = true
	}
	return p
}

// Claim reserves the requested devices for owner and returns those it got.
// Ineligible or already owned devices are skipped with a warning.
func (p *DevicePool) Claim(owner string, devices []model.Device) []model.Device {
	var got []model.Device
	for _, d := range devices {
		switch {
		case !p.eligible[d]:
			p.log.Warnf("instance '%s': device %s is not supported, skipping", owner, d)
		case p.owner[d] == owner:
			// listed twice
		case p.owner[d] != "":
			p.log.Warnf("instance '%s': device %s already assigned to '%s', skipping", owner, d, p.owner[d])
		default:
			p.owner[d] = owner
			got = append(got, d)
		}
	}
	return got
}

// TakeAll hands every free device to owner.
func (p *DevicePool) TakeAll(owner string) []model.Device {
	free := p.Free()
	for _, d := range free {
		p.owner[d] = owner
	}
	return free
}

// Free returns the unclaimed devices, sorted.
func (p *DevicePool) Free() []model.Device {
	var free []model.Device
	for d := range p.eligible {
		if p.owner[d] == "" {
			free = append(free, d)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })
	return free
}

// Owner returns the instance owning device, or "".
func (p *DevicePool) Owner(device model.Device) string {
	return p.owner[device]
}
