package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(version string, products int) *Snapshot {
	raw := make([]RawProduct, 0, products)
	for i := 0; i < products; i++ {
		raw = append(raw, RawProduct{
			ID:       looseString(version + "-" + string(rune('a'+i))),
			Name:     "Bun & <tea>",
			Price:    "10",
			ParentID: "1",
			Sort:     looseInt(i),
		})
	}
	return BuildSnapshot(raw, []RawCategory{{ID: "1", Name: "Bread"}}, time.Unix(0, 0), version)
}

func TestStorePublishWritesFileAndSwaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "catalog.json")
	s := NewStore(path)

	assert.Nil(t, s.Current())
	_, _, err := s.Raw()
	require.ErrorIs(t, err, ErrNoSnapshot)

	snap := sampleSnapshot("v1", 2)
	require.NoError(t, s.Publish(snap))

	assert.Same(t, snap, s.Current())
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	got, raw, err := s.Raw()
	require.NoError(t, err)
	assert.Same(t, snap, got)
	assert.Equal(t, onDisk, raw)
	assert.Contains(t, string(raw), "Bun & <tea>", "HTML characters are written verbatim")
}

func TestStoreLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, NewStore(path).Publish(sampleSnapshot("v7", 3)))

	s := NewStore(path)
	snap, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "v7", snap.Metadata.Version)
	assert.Equal(t, 3, snap.Metadata.ProductsCount)
	_, ok := snap.Product("v7-b")
	assert.True(t, ok)
	assert.Same(t, snap, s.Current())
}

func TestStoreLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	snap, err := NewStore(filepath.Join(dir, "absent.json")).Load()
	require.NoError(t, err)
	assert.Nil(t, snap)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	s := NewStore(bad)
	_, err = s.Load()
	require.Error(t, err)
	assert.Nil(t, s.Current())
}

func TestStorePublishFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	s := NewStore(path)
	first := sampleSnapshot("v1", 1)
	require.NoError(t, s.Publish(first))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Replace the cache file with a non-empty directory so the rename fails.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "x"), 0o755))

	require.Error(t, s.Publish(sampleSnapshot("v2", 1)))
	assert.Same(t, first, s.Current())
	got, raw, err := s.Raw()
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, before, raw)
}

func TestStoreConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, s.Publish(sampleSnapshot("v0", 4)))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Current()
				count := 0
				for _, group := range snap.Products {
					count += len(group)
				}
				assert.Equal(t, snap.Metadata.ProductsCount, count)
				for _, group := range snap.Products {
					for _, p := range group {
						assert.Equal(t, snap.Metadata.Version, p.ID[:len(snap.Metadata.Version)])
					}
				}
			}
		}()
	}

	for i := 1; i <= 20; i++ {
		v := "v" + string(rune('0'+i%10))
		require.NoError(t, s.Publish(sampleSnapshot(v, 1+i%5)))
	}
	close(stop)
	wg.Wait()
}

func TestStoreRawPairsSnapshotWithItsBytes(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, s.Publish(sampleSnapshot("v0", 1)))

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap, raw, err := s.Raw()
			if !assert.NoError(t, err) {
				return
			}
			var doc struct {
				Metadata struct {
					Version string `json:"version"`
				} `json:"metadata"`
			}
			if assert.NoError(t, json.Unmarshal(raw, &doc)) {
				assert.Equal(t, snap.Metadata.Version, doc.Metadata.Version)
			}
		}
	}()

	for i := 1; i <= 30; i++ {
		require.NoError(t, s.Publish(sampleSnapshot("v"+string(rune('0'+i%10)), 1)))
	}
	close(stop)
	<-done
}
