package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"
)

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Results caches one analysis result per file, keyed by path and
// invalidated by a content hash.
type Results struct {
	lru    *LRUCache
	path   string
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResults creates a result cache holding at most maxEntries files.
// path is where Open and Close persist it; empty keeps it in memory.
func NewResults(maxEntries int, path string) *Results {
	return &Results{lru: New(Options{MaxSize: maxEntries}), path: path}
}

// Open loads the persisted cache, if any.
func (r *Results) Open() error {
	if r.path == "" {
		return nil
	}
	return LoadFromFile(r.lru, r.path)
}

// Close persists the cache.
func (r *Results) Close() error {
	if r.path == "" {
		return nil
	}
	return PersistToFile(r.lru, r.path)
}

// Lookup decodes the cached result for file into v. It reports false when
// nothing is cached or the cached result was computed from other content.
func (r *Results) Lookup(file, hash string, v interface{}) bool {
	e, ok := r.lru.Get(file)
	if !ok || e.Hash != hash {
		r.misses.Add(1)
		return false
	}
	if err := msgpack.Unmarshal(e.Value, v); err != nil {
		r.lru.Delete(file)
		r.misses.Add(1)
		return false
	}
	r.hits.Add(1)
	return true
}

// Store caches v as the result for file.
func (r *Results) Store(file, hash string, v interface{}) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", file, err)
	}
	r.lru.Set(file, hash, b)
	return nil
}

// Stats returns usage counters.
func (r *Results) Stats() Stats {
	return Stats{
		Length:       r.lru.Len(),
		CurrentBytes: r.lru.CurrentBytes(),
		HitCount:     r.hits.Load(),
		MissCount:    r.misses.Load(),
	}
}
