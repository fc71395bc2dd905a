package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/m3rciful/bakerybot/core/fsutil"
)

// ErrNoSnapshot is returned by readers before the first successful publish.
var ErrNoSnapshot = errors.New("catalog: no snapshot published yet")

type published struct {
	snap *Snapshot
	raw  []byte
}

// Store holds the current Snapshot in memory and mirrors it to a cache file.
// Readers never block and always observe a complete snapshot.
type Store struct {
	path    string
	current atomic.Pointer[published]
}

// NewStore returns an empty store backed by the cache file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path reports the cache file location.
func (s *Store) Path() string { return s.path }

// Current returns the latest snapshot or nil when nothing was published.
func (s *Store) Current() *Snapshot {
	if p := s.current.Load(); p != nil {
		return p.snap
	}
	return nil
}

// Raw returns the current snapshot together with its serialized form,
// byte-identical to the cache file contents. Both come from the same publish.
// The slice must not be modified.
func (s *Store) Raw() (*Snapshot, []byte, error) {
	p := s.current.Load()
	if p == nil {
		return nil, nil, ErrNoSnapshot
	}
	return p.snap, p.raw, nil
}

// Load primes the store from an existing cache file. A missing file is not an
// error; a corrupt one is reported and leaves the store empty.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: read cache: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("catalog: decode cache: %w", err)
	}
	if snap.Products == nil {
		snap.Products = map[string][]Product{}
	}
	snap.buildIndex()
	s.current.Store(&published{snap: &snap, raw: data})
	return &snap, nil
}

// Publish writes snap to a temporary file next to the cache, renames it over
// the cache and then swaps the in-memory pointer. On any error the previous
// file and snapshot stay in place.
func (s *Store) Publish(snap *Snapshot) error {
	if snap == nil {
		return errors.New("catalog: nil snapshot")
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("catalog: encode snapshot: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("catalog: commit cache: %w", err)
	}
	s.current.Store(&published{snap: snap, raw: data})
	return nil
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
