package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"todo/pkg/logger"
)

const (
	taskKeyPrefix = "task:"
	// one past ':' so the range covers every task key
	taskKeyEnd = "task;"
)

func taskKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%08d", taskKeyPrefix, i))
}

// PebbleBackend keeps tasks in a pebble database under "task:%08d" keys with
// JSON values, in list order.
type PebbleBackend struct {
	db   *pebble.DB
	path string
}

// OpenPebbleBackend opens or creates the database at path.
func OpenPebbleBackend(path string) (*PebbleBackend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &PebbleBackend{db: db, path: path}, nil
}

func (b *PebbleBackend) Path() string { return b.path }

// Load returns every task in key order.
func (b *PebbleBackend) Load() ([]Task, error) {
	iter, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(taskKeyPrefix),
		UpperBound: []byte(taskKeyEnd),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Task
	for iter.First(); iter.Valid(); iter.Next() {
		var t Task
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		out = append(out, t)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save replaces every stored task with tasks in one synced batch.
func (b *PebbleBackend) Save(tasks []Task) error {
	batch := b.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange([]byte(taskKeyPrefix), []byte(taskKeyEnd), nil); err != nil {
		return err
	}
	for i, t := range tasks {
		v, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode task %d: %w", i, err)
		}
		if err := batch.Set(taskKey(i), v, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// Close closes the database.
func (b *PebbleBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
