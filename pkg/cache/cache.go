// Package cache keeps per-file analysis results in an LRU cache that can be
// persisted to disk between runs.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrKeyNotFound is returned when a key is not in the cache.
var ErrKeyNotFound = errors.New("key not found")

// Cache is an LRU store of encoded values.
type Cache interface {
	// Get returns the value for key and marks it most recently used.
	Get(key string) (Entry, bool)

	// Set stores value under key, evicting the least recently used entries
	// when the cache is over its limits.
	Set(key, hash string, value []byte)

	Delete(key string)
	Clear()
	Len() int

	// Save persists the cache to w.
	Save(w io.Writer) error

	// Load replaces the cache contents with what r holds.
	Load(r io.Reader) error
}

// Entry is one cached value. Hash identifies the input the value was
// computed from.
type Entry struct {
	Key        string    `msgpack:"key"`
	Hash       string    `msgpack:"hash"`
	Value      []byte    `msgpack:"value"`
	AccessedAt time.Time `msgpack:"accessed_at"`
	CreatedAt  time.Time `msgpack:"created_at"`
}

// Size is the approximate memory held by the entry.
func (e Entry) Size() int {
	return len(e.Key) + len(e.Hash) + len(e.Value)
}

// LRUCache is an in-memory LRU cache with msgpack persistence.
type LRUCache struct {
	mu           sync.RWMutex
	items        map[string]*listItem
	lru          *list // most recent at front
	maxSize      int
	maxBytes     int64
	currentBytes int64
	onEvict      func(key string)
}

type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

type list struct {
	head *listItem // most recently accessed
	tail *listItem // least recently accessed
	len  int
}

func (l *list) unlink(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
	l.len--
}

func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	l.unlink(item)
	l.pushFront(item)
}

// Options configures the LRU cache.
type Options struct {
	// MaxSize is the maximum number of entries. 0 means unlimited.
	MaxSize int

	// MaxBytes is the approximate maximum size in bytes. 0 means unlimited.
	MaxBytes int64

	// OnEvict is called when an entry is evicted or deleted.
	OnEvict func(key string)
}

// New creates an LRU cache.
func New(opts Options) *LRUCache {
	return &LRUCache{
		items:    make(map[string]*listItem),
		lru:      &list{},
		maxSize:  opts.MaxSize,
		maxBytes: opts.MaxBytes,
		onEvict:  opts.OnEvict,
	}
}

// Get retrieves an entry.
func (c *LRUCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return Entry{}, false
	}
	item.AccessedAt = time.Now()
	c.lru.moveToFront(item)
	return item.Entry, true
}

// Set stores an entry.
func (c *LRUCache) Set(key, hash string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if item, exists := c.items[key]; exists {
		c.currentBytes -= int64(item.Size())
		item.Hash = hash
		item.Value = value
		item.AccessedAt = now
		c.currentBytes += int64(item.Size())
		c.lru.moveToFront(item)
		c.evictIfNeeded()
		return
	}

	item := &listItem{Entry: Entry{Key: key, Hash: hash, Value: value, AccessedAt: now, CreatedAt: now}}
	c.items[key] = item
	c.lru.pushFront(item)
	c.currentBytes += int64(item.Size())
	c.evictIfNeeded()
}

// Delete removes a key.
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return
	}
	c.lru.unlink(item)
	delete(c.items, key)
	c.currentBytes -= int64(item.Size())
	if c.onEvict != nil {
		c.onEvict(key)
	}
}

// Clear removes all entries.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *LRUCache) reset() {
	c.items = make(map[string]*listItem)
	c.lru = &list{}
	c.currentBytes = 0
}

// Len returns the number of entries.
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CurrentBytes returns the approximate current size in bytes.
func (c *LRUCache) CurrentBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentBytes
}

// Keys returns the keys from most to least recently used.
func (c *LRUCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, c.lru.len)
	for it := c.lru.head; it != nil; it = it.next {
		keys = append(keys, it.Key)
	}
	return keys
}

func (c *LRUCache) evictIfNeeded() {
	for c.shouldEvict() {
		item := c.lru.tail
		if item == nil {
			break
		}
		c.lru.unlink(item)
		delete(c.items, item.Key)
		c.currentBytes -= int64(item.Size())
		if c.onEvict != nil {
			c.onEvict(item.Key)
		}
	}
}

func (c *LRUCache) shouldEvict() bool {
	if c.maxSize > 0 && c.lru.len > c.maxSize {
		return true
	}
	if c.maxBytes > 0 && c.currentBytes > c.maxBytes {
		return true
	}
	return false
}

// Save writes the entries to w with msgpack, most recently used first.
func (c *LRUCache) Save(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.items))
	for it := c.lru.head; it != nil; it = it.next {
		entries = append(entries, it.Entry)
	}
	return msgpack.NewEncoder(w).Encode(entries)
}

// Load restores the entries written by Save, keeping their recency order.
func (c *LRUCache) Load(r io.Reader) error {
	var entries []Entry
	if err := msgpack.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	for i := len(entries) - 1; i >= 0; i-- {
		item := &listItem{Entry: entries[i]}
		if old, ok := c.items[item.Key]; ok {
			c.lru.unlink(old)
			c.currentBytes -= int64(old.Size())
		}
		c.items[item.Key] = item
		c.lru.pushFront(item)
		c.currentBytes += int64(item.Size())
	}
	c.evictIfNeeded()
	return nil
}

// PersistToFile saves the cache to path.
func PersistToFile(c Cache, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := c.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFromFile loads the cache from path. A missing file leaves the cache
// untouched.
func LoadFromFile(c Cache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()
	return c.Load(f)
}

// Stats describes cache usage.
type Stats struct {
	Length       int   `json:"length" yaml:"length"`
	CurrentBytes int64 `json:"current_bytes" yaml:"current_bytes"`
	HitCount     int64 `json:"hit_count" yaml:"hit_count"`
	MissCount    int64 `json:"miss_count" yaml:"miss_count"`
}

var _ Cache = (*LRUCache)(nil)
