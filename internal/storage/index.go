package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"

	"github.com/san-kum/latsim/internal/logging"
)

const IndexDir = "index"

var runPrefix = []byte("run/")

// Index is a catalog of run metadata keyed by run id. The metadata.json in
// each run directory stays authoritative; the index only speeds up listing.
type Index struct {
	db *pebble.DB
}

func OpenIndex(dir string, log *slog.Logger) (*Index, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		Logger: pebbleLogger{log: logging.Component(log, "index")},
	})
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", dir, err)
	}
	return &Index{db: db}, nil
}

func runKey(id string) []byte {
	return append(append([]byte(nil), runPrefix...), id...)
}

func (ix *Index) Put(meta *RunMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return ix.db.Set(runKey(meta.ID), data, pebble.Sync)
}

func (ix *Index) Get(id string) (*RunMetadata, error) {
	data, closer, err := ix.db.Get(runKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("index entry %s: %w", id, err)
	}
	return &meta, nil
}

func (ix *Index) Delete(id string) error {
	return ix.db.Delete(runKey(id), pebble.Sync)
}

// List returns every indexed run in key order.
func (ix *Index) List() ([]RunMetadata, error) {
	upper := append([]byte(nil), runPrefix...)
	upper[len(upper)-1]++

	it, err := ix.db.NewIter(&pebble.IterOptions{LowerBound: runPrefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	runs := make([]RunMetadata, 0)
	for it.First(); it.Valid(); it.Next() {
		var meta RunMetadata
		if err := json.Unmarshal(it.Value(), &meta); err != nil {
			return nil, fmt.Errorf("index entry %s: %w", it.Key(), err)
		}
		runs = append(runs, meta)
	}
	return runs, it.Error()
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

type pebbleLogger struct {
	log *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.log.Error(msg)
	panic(msg)
}
