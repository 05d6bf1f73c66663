// Package storage persists the small amount of state the daemon must keep
// across restarts: the IO scheduler value to restore for every device whose
// elevator was overridden.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ftahirops/xtune/model"
)

// ErrNotFound is returned by Get when no record exists for a device.
var ErrNotFound = errors.New("record not found")

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Store keeps at most one ElevatorRecord per (namespace, device).
type Store interface {
	Get(namespace string, device model.Device) (model.ElevatorRecord, error)
	Set(namespace string, rec model.ElevatorRecord) error
	Delete(namespace string, device model.Device) error
	List(namespace string) ([]model.ElevatorRecord, error)
	Close() error
}

// Config selects and locates the store backend.
type Config struct {
	// Backend is one of file, badger, memory. Default: file
	Backend string `mapstructure:"backend" yaml:"backend" validate:"required,oneof=file badger memory"`

	// Path is the JSON file (file backend) or directory (badger backend).
	// Relative paths are resolved against the data directory.
	Path string `mapstructure:"path" yaml:"path"`
}

// Open creates the configured backend. dataDir anchors relative paths.
func Open(cfg Config, dataDir string) (Store, error) {
	path := cfg.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dataDir, path)
	}

	switch cfg.Backend {
	case BackendFile, "":
		if path == "" {
			path = filepath.Join(dataDir, "storage.json")
		}
		return OpenFileStore(path)
	case BackendBadger:
		if path == "" {
			path = filepath.Join(dataDir, "storage.db")
		}
		return OpenBadgerStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func recordKey(namespace string, device model.Device) string {
	return namespace + "/" + string(device)
}
