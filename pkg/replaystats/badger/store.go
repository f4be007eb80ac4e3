// Package badger implements a persistent replaystats.Store backed by
// BadgerDB, so a long-running replay analysis tool can accumulate statistics
// across process restarts rather than starting from zero every run.
//
// Keys are namespaced by prefix: "orig/<action>" for recorded-trace
// durations, "actual/<action>" for replayed durations, mirroring
// pkg/metadata/badger's prefix-per-namespace key scheme. Each value is a
// gob-encoded (cumulative-duration, sample-count) pair.
package badger

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittoflow/pkg/replaystats"
)

const (
	prefixOriginal = "orig/"
	prefixActual   = "actual/"
)

type record struct {
	Total time.Duration
	Count uint64
}

// Store is a replaystats.Store persisted to a BadgerDB database.
type Store struct {
	db *badger.DB
}

// Config controls how the underlying BadgerDB database is opened.
type Config struct {
	// DBPath is the directory BadgerDB stores its files in.
	DBPath string

	// BadgerOptions, if set, overrides the default options entirely.
	BadgerOptions *badger.Options
}

// New opens (creating if absent) a persistent statistics store at
// config.DBPath.
func New(config Config) (*Store, error) {
	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the underlying database. The store must not be
// used afterward.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func (s *Store) UpdateOriginal(action string, d time.Duration) {
	s.update(prefixOriginal+action, d)
}

func (s *Store) UpdateActual(action string, d time.Duration) {
	s.update(prefixActual+action, d)
}

func (s *Store) update(key string, d time.Duration) {
	_ = s.db.Update(func(txn *badger.Txn) error {
		rec := record{}
		item, err := txn.Get([]byte(key))
		if err == nil {
			_ = item.Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
			})
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		rec.Total += d
		rec.Count++

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
			return err
		}
		return txn.Set([]byte(key), buf.Bytes())
	})
}

func (s *Store) Snapshot() (original, actual map[string]replaystats.Sample) {
	original = make(map[string]replaystats.Sample)
	actual = make(map[string]replaystats.Sample)

	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			var rec record
			if err := item.Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
			}); err != nil {
				continue
			}

			switch {
			case len(key) > len(prefixOriginal) && key[:len(prefixOriginal)] == prefixOriginal:
				original[key[len(prefixOriginal):]] = replaystats.Sample{Total: rec.Total, Count: rec.Count}
			case len(key) > len(prefixActual) && key[:len(prefixActual)] == prefixActual:
				actual[key[len(prefixActual):]] = replaystats.Sample{Total: rec.Total, Count: rec.Count}
			}
		}
		return nil
	})

	return original, actual
}

var _ replaystats.Store = (*Store)(nil)
