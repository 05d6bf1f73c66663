package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/util"
)

// DefaultVendors are the device vendor strings eligible for power tuning.
var DefaultVendors = []string{"ATA", "SCSI"}

// DeviceLister discovers the devices a plugin may manage.
type DeviceLister interface {
	ListEligibleDevices() ([]model.Device, error)
}

// SysfsDevices lists block devices whose reported vendor is allow-listed.
type SysfsDevices struct {
	Root    string // sysfs mount point, normally /sys
	Vendors []string
}

// ListEligibleDevices returns the sorted names under <root>/block whose
// device/vendor file matches one of the vendors. Devices without a vendor
// file (loop, dm, nvme) are not eligible.
func (s SysfsDevices) ListEligibleDevices() ([]model.Device, error) {
	blockDir := filepath.Join(s.Root, "block")
	entries, err := os.ReadDir(blockDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", blockDir, err)
	}

	vendors := s.Vendors
	if len(vendors) == 0 {
		vendors = DefaultVendors
	}
	allowed := make(map[string]bool, len(vendors))
	for _, v := range vendors {
		allowed[v] = true
	}

	var out []model.Device
	for _, e := range entries {
		vendor, err := util.ReadFileString(filepath.Join(blockDir, e.Name(), "device", "vendor"))
		if err != nil {
			continue
		}
		if allowed[vendor] {
			out = append(out, model.Device(e.Name()))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
