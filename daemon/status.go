package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/util"
)

// Files kept in the data directory.
const (
	PIDFile    = "xtune.pid"
	StatusFile = "status.json"
	EventsFile = "events.jsonl"
)

// StatusPath returns the status file of dataDir.
func StatusPath(dataDir string) string { return filepath.Join(dataDir, StatusFile) }

// EventsPath returns the event log of dataDir.
func EventsPath(dataDir string) string { return filepath.Join(dataDir, EventsFile) }

// PIDPath returns the pid file of dataDir.
func PIDPath(dataDir string) string { return filepath.Join(dataDir, PIDFile) }

// WriteStatus replaces the status file atomically so readers never see a
// partial document.
func WriteStatus(path string, st model.Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return util.WriteFileAtomic(path, data, 0644)
}

// ReadStatus loads a status file written by WriteStatus.
func ReadStatus(path string) (*model.Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st model.Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &st, nil
}

// writePID records the current process id. It fails when another live
// daemon already owns the file.
func writePID(path string) error {
	if pid, alive := RunningPID(path); alive && pid != os.Getpid() {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// RunningPID reads the pid file and reports whether that process exists.
func RunningPID(path string) (int, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	// signal 0 probes for existence on unix
	if err := proc.Signal(syscall.Signal(0)); err != nil && !errors.Is(err, syscall.EPERM) {
		return pid, false
	}
	return pid, true
}
