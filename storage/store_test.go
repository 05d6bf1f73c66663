package storage

import (
	"path/filepath"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/xtune/model"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	file, err := OpenFileStore(filepath.Join(t.TempDir(), "storage.json"))
	require.NoError(t, err)

	bdg, err := openBadger(badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)

	stores := map[string]Store{
		BackendFile:   file,
		BackendBadger: bdg,
		BackendMemory: NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("disk", "sda")
			assert.ErrorIs(t, err, ErrNotFound)

			rec := model.ElevatorRecord{
				Device:         "sda",
				SavedScheduler: "mq-deadline",
				Applied:        "bfq",
				AppliedAt:      time.Unix(1700000000, 0).UTC(),
			}
			require.NoError(t, s.Set("disk", rec))
			require.NoError(t, s.Set("disk", model.ElevatorRecord{Device: "sdb", SavedScheduler: "none"}))
			require.NoError(t, s.Set("other", model.ElevatorRecord{Device: "sda", SavedScheduler: "kyber"}))

			got, err := s.Get("disk", "sda")
			require.NoError(t, err)
			assert.Equal(t, rec, got)

			// one record per device: overwrite replaces
			rec.SavedScheduler = "none"
			require.NoError(t, s.Set("disk", rec))
			got, err = s.Get("disk", "sda")
			require.NoError(t, err)
			assert.Equal(t, "none", got.SavedScheduler)

			list, err := s.List("disk")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, model.Device("sda"), list[0].Device)
			assert.Equal(t, model.Device("sdb"), list[1].Device)

			require.NoError(t, s.Delete("disk", "sda"))
			require.NoError(t, s.Delete("disk", "sda"), "delete is idempotent")
			_, err = s.Get("disk", "sda")
			assert.ErrorIs(t, err, ErrNotFound)

			other, err := s.Get("other", "sda")
			require.NoError(t, err)
			assert.Equal(t, "kyber", other.SavedScheduler)
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("disk", model.ElevatorRecord{Device: "sdc", SavedScheduler: "bfq"}))
	require.NoError(t, s.Close())

	s, err = OpenFileStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("disk", "sdc")
	require.NoError(t, err)
	assert.Equal(t, "bfq", got.SavedScheduler)
}

func TestFileStoreExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	_, err = OpenFileStore(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, s.Close())
	s2, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Config{Backend: BackendMemory}, dir)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Config{Backend: BackendFile, Path: "state.json"}, dir)
	require.NoError(t, err)
	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "state.json"), fs.path)
	require.NoError(t, s.Close())

	_, err = Open(Config{Backend: "etcd"}, dir)
	assert.Error(t, err)
}
