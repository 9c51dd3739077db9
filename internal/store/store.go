// Package store archives encoded activity files in a Pebble database, keyed
// by time-sortable KSUIDs.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

var ErrNotFound = errors.New("store: activity not found")

var keyPrefix = []byte("activity/")

// Entry describes one archived file.
type Entry struct {
	ID        ksuid.KSUID `json:"id"`
	Size      int         `json:"size"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Store struct {
	db *pebble.DB
}

// Open opens or creates the archive in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func key(id ksuid.KSUID) []byte {
	return append(bytes.Clone(keyPrefix), id.Bytes()...)
}

// Put archives data under a fresh ID.
func (s *Store) Put(data []byte) (ksuid.KSUID, error) {
	id := ksuid.New()
	if err := s.db.Set(key(id), data, pebble.Sync); err != nil {
		return ksuid.Nil, fmt.Errorf("store: put %s: %w", id, err)
	}
	return id, nil
}

// Get returns a copy of the file stored under id.
func (s *Store) Get(id ksuid.KSUID) ([]byte, error) {
	v, closer, err := s.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	defer func() { _ = closer.Close() }()
	return bytes.Clone(v), nil
}

// Delete removes id, returning ErrNotFound when it was never stored.
func (s *Store) Delete(id ksuid.KSUID) error {
	k := key(id)
	_, closer, err := s.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	_ = closer.Close()
	if err := s.db.Delete(k, pebble.Sync); err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit <= 0 lists
// everything.
func (s *Store) List(limit int) ([]Entry, error) {
	upper := bytes.Clone(keyPrefix)
	upper[len(upper)-1]++
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}

	entries := []Entry{}
	for valid := iter.Last(); valid; valid = iter.Prev() {
		id, err := ksuid.FromBytes(iter.Key()[len(keyPrefix):])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{ID: id, Size: len(iter.Value()), CreatedAt: id.Time()})
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return entries, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
