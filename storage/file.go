package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/util"
)

// ErrLocked is returned when another process holds the store.
var ErrLocked = errors.New("store is locked by another process")

// FileStore keeps all records in one JSON document, rewritten atomically on
// every change. An exclusive flock on <path>.lock is held while open.
type FileStore struct {
	mu   sync.Mutex
	path string
	lock *os.File
	data map[string]map[model.Device]model.ElevatorRecord
}

// OpenFileStore loads (or creates) the store at path.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	s := &FileStore{
		path: path,
		lock: lock,
		data: make(map[string]map[model.Device]model.ElevatorRecord),
	}
	if err := s.load(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return fmt.Errorf("parse store %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(s.path, raw, 0600); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	return nil
}

func (s *FileStore) Get(namespace string, device model.Device) (model.ElevatorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[namespace][device]
	if !ok {
		return model.ElevatorRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *FileStore) Set(namespace string, rec model.ElevatorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[model.Device]model.ElevatorRecord)
		s.data[namespace] = ns
	}
	prev, existed := ns[rec.Device]
	ns[rec.Device] = rec
	if err := s.save(); err != nil {
		// keep memory consistent with disk
		if existed {
			ns[rec.Device] = prev
		} else {
			delete(ns, rec.Device)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(namespace string, device model.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.data[namespace]
	prev, ok := ns[device]
	if !ok {
		return nil
	}
	delete(ns, device)
	if len(ns) == 0 {
		delete(s.data, namespace)
	}
	if err := s.save(); err != nil {
		if s.data[namespace] == nil {
			s.data[namespace] = make(map[model.Device]model.ElevatorRecord)
		}
		s.data[namespace][device] = prev
		return err
	}
	return nil
}

func (s *FileStore) List(namespace string) ([]model.ElevatorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRecords(s.data[namespace]), nil
}

// Close releases the lock. The data file is already up to date.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return nil
	}
	_ = unix.Flock(int(s.lock.Fd()), unix.LOCK_UN)
	err := s.lock.Close()
	s.lock = nil
	return err
}
