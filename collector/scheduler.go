package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/util"
)

// SysfsScheduler reads and writes /sys/block/<dev>/queue/scheduler.
type SysfsScheduler struct {
	Root string // sysfs mount point, normally /sys
}

func (s SysfsScheduler) path(device model.Device) string {
	return filepath.Join(s.Root, "block", string(device), "queue", "scheduler")
}

// Read returns the active scheduler. The kernel lists all available
// schedulers with the active one in brackets ("mq-deadline [bfq] none").
func (s SysfsScheduler) Read(device model.Device) (string, error) {
	raw, err := util.ReadFileString(s.path(device))
	if err != nil {
		return "", err
	}
	return activeScheduler(raw), nil
}

// Write selects scheduler for device.
func (s SysfsScheduler) Write(device model.Device, scheduler string) error {
	f, err := os.OpenFile(s.path(device), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(scheduler); err != nil {
		f.Close()
		return fmt.Errorf("write scheduler %q: %w", scheduler, err)
	}
	return f.Close()
}

func activeScheduler(raw string) string {
	fields := strings.Fields(raw)
	for _, f := range fields {
		if strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]") {
			return strings.Trim(f, "[]")
		}
	}
	if len(fields) == 1 {
		return fields[0]
	}
	return ""
}
