package collector

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ftahirops/xtune/model"
)

// ErrNoHdparm is returned when the hdparm binary cannot be found.
var ErrNoHdparm = errors.New("hdparm not found")

// Hdparm applies power settings by running hdparm.
type Hdparm struct {
	// Path of the hdparm binary; resolved from $PATH when empty.
	Path string
	// DevDir is the device node directory, normally /dev.
	DevDir string
	// run is replaced in tests.
	run func(name string, args ...string) ([]byte, error)
}

// NewHdparm resolves the binary. A missing binary is reported but the
// returned value is still usable: every call then fails with ErrNoHdparm.
func NewHdparm(path string) (*Hdparm, error) {
	h := &Hdparm{Path: path, DevDir: "/dev", run: runCombined}
	if h.Path != "" {
		return h, nil
	}
	p, err := exec.LookPath("hdparm")
	if err != nil {
		return h, ErrNoHdparm
	}
	h.Path = p
	return h, nil
}

func runCombined(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// SetProfile sets the APM level and standby timeout of device.
func (h *Hdparm) SetProfile(device model.Device, s model.PowerSetting) error {
	if h.Path == "" {
		return ErrNoHdparm
	}
	args := hdparmArgs(h.DevDir, device, s)
	out, err := h.run(h.Path, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("hdparm %s: %w: %s", strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("hdparm %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func hdparmArgs(devDir string, device model.Device, s model.PowerSetting) []string {
	return []string{
		"-B" + strconv.Itoa(s.APM),
		"-S" + strconv.Itoa(s.Spindown),
		devDir + "/" + string(device),
	}
}
