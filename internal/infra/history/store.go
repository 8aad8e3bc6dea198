// Package history provides bounded most-recent-first persistence of
// canonical songs.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/hmuro/playalong/internal/domain/song"
)

// maxEntries caps the history list; appending beyond the cap evicts the
// oldest entry.
const maxEntries = 10

// historyKey is the fixed key the entry list is stored under.
var historyKey = []byte("playalong:history")

// Entry is one persisted history item.
type Entry struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	Data      song.Record `json:"data"`
}

// Options configures the store.
type Options struct {
	// Dir is the directory for database files. Required unless InMemory.
	Dir string
	// InMemory runs the database without disk persistence. Used in tests.
	InMemory bool
}

// Store persists song records newest-first, capped at maxEntries.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the history database.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("history: Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append prepends a new entry for the given record and truncates the
// list to the most recent maxEntries. It returns the created entry.
func (s *Store) Append(ctx context.Context, rec *song.Record) (*Entry, error) {
	entry := &Entry{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Data:      *rec,
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		entries, err := readEntries(txn)
		if err != nil {
			return err
		}

		entries = append([]Entry{*entry}, entries...)
		if len(entries) > maxEntries {
			entries = entries[:maxEntries]
		}

		data, err := json.Marshal(entries)
		if err != nil {
			return errors.Wrap(err, "failed to marshal history")
		}
		return txn.Set(historyKey, data)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to append history entry")
	}
	return entry, nil
}

// List returns all entries, newest-first. A store that has never been
// written reads as an empty list.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entries, err = readEntries(txn)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list history")
	}
	return entries, nil
}

func readEntries(txn *badger.Txn) ([]Entry, error) {
	item, err := txn.Get(historyKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entries)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode history")
	}
	return entries, nil
}
