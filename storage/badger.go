package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/ftahirops/xtune/model"
)

// BadgerStore keeps records in a badger database, one key per device.
type BadgerStore struct {
	db *badgerdb.DB
}

// OpenBadgerStore opens (or creates) a badger database in dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	return openBadger(opts)
}

func openBadger(opts badgerdb.Options) (*BadgerStore, error) {
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(namespace string, device model.Device) (model.ElevatorRecord, error) {
	var rec model.ElevatorRecord
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(recordKey(namespace, device)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return model.ElevatorRecord{}, ErrNotFound
	}
	if err != nil {
		return model.ElevatorRecord{}, fmt.Errorf("get %s: %w", device, err)
	}
	return rec, nil
}

func (s *BadgerStore) Set(namespace string, rec model.ElevatorRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(recordKey(namespace, rec.Device)), val); err != nil {
			return fmt.Errorf("failed to store record for %s: %w", rec.Device, err)
		}
		return nil
	})
}

func (s *BadgerStore) Delete(namespace string, device model.Device) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(recordKey(namespace, device)))
	})
}

func (s *BadgerStore) List(namespace string) ([]model.ElevatorRecord, error) {
	var out []model.ElevatorRecord
	prefix := []byte(namespace + "/")
	err := s.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec model.ElevatorRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
