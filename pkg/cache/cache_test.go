package cache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_Basic(t *testing.T) {
	c := New(Options{MaxSize: 3})

	c.Set("a", "ha", []byte("value_a"))
	c.Set("b", "hb", []byte("value_b"))
	c.Set("c", "hc", []byte("value_c"))

	assert.Equal(t, 3, c.Len())

	e, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, []byte("value_a"), e.Value)
	assert.Equal(t, "ha", e.Hash)
}

func TestLRUCache_Eviction(t *testing.T) {
	var evicted []string
	c := New(Options{MaxSize: 3, OnEvict: func(key string) { evicted = append(evicted, key) }})

	c.Set("a", "", []byte("1"))
	c.Set("b", "", []byte("2"))
	c.Set("c", "", []byte("3"))

	// Access 'a' to make it most recently used
	c.Get("a")
	c.Set("d", "", []byte("4"))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"d", "a", "c"}, c.Keys())
}

func TestLRUCache_MaxBytes(t *testing.T) {
	c := New(Options{MaxBytes: 25})

	c.Set("a", "", []byte("1234567890"))
	c.Set("b", "", []byte("1234567890"))
	c.Set("c", "", []byte("1234567890"))

	assert.Equal(t, 2, c.Len())
	assert.LessOrEqual(t, c.CurrentBytes(), int64(25))
	_, found := c.Get("a")
	assert.False(t, found)
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c := New(Options{MaxSize: 10})
	c.Set("a", "", []byte("x"))
	c.Set("b", "", []byte("y"))
	c.Set("c", "", []byte("z"))

	c.Delete("b")
	c.Delete("missing")
	assert.Equal(t, []string{"c", "a"}, c.Keys())

	c.Delete("c")
	c.Delete("a")
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Keys())

	c.Set("d", "", []byte("w"))
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.CurrentBytes())
}

func TestLRUCache_Update(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", "h1", []byte("value1"))
	c.Set("a", "h2", []byte("value2"))

	e, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, []byte("value2"), e.Value)
	assert.Equal(t, "h2", e.Hash)
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_SaveLoadKeepsOrder(t *testing.T) {
	c := New(Options{MaxSize: 10})
	c.Set("key1", "h", []byte("value1"))
	c.Set("key2", "h", []byte("value2"))
	c.Set("key3", "h", []byte("value3"))
	c.Get("key1")

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))

	c2 := New(Options{MaxSize: 10})
	require.NoError(t, c2.Load(&buf))
	assert.Equal(t, c.Keys(), c2.Keys())
	assert.Equal(t, c.CurrentBytes(), c2.CurrentBytes())

	e, found := c2.Get("key2")
	require.True(t, found)
	assert.Equal(t, []byte("value2"), e.Value)
}

func TestLRUCache_LoadGarbage(t *testing.T) {
	c := New(Options{})
	assert.Error(t, c.Load(bytes.NewReader([]byte{0xc1})))
}

func TestPersistToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.msgpack")

	c := New(Options{})
	require.NoError(t, LoadFromFile(c, path), "missing file is not an error")

	c.Set("a", "h", []byte("v"))
	require.NoError(t, PersistToFile(c, path))

	c2 := New(Options{})
	require.NoError(t, LoadFromFile(c2, path))
	assert.Equal(t, 1, c2.Len())
}

type result struct {
	Routines []string `msgpack:"routines"`
	Warnings int      `msgpack:"warnings"`
}

func TestResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.msgpack")
	r := NewResults(10, path)
	require.NoError(t, r.Open())

	src := []byte("<?php echo 1;")
	hash := HashBytes(src)
	want := result{Routines: []string{"{main}"}, Warnings: 2}
	require.NoError(t, r.Store("a.php", hash, want))

	var got result
	require.True(t, r.Lookup("a.php", hash, &got))
	assert.Equal(t, want, got)

	assert.False(t, r.Lookup("a.php", HashBytes([]byte("changed")), &got))
	assert.False(t, r.Lookup("b.php", hash, &got))

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(2), stats.MissCount)
	assert.Equal(t, 1, stats.Length)

	require.NoError(t, r.Close())

	reopened := NewResults(10, path)
	require.NoError(t, reopened.Open())
	got = result{}
	require.True(t, reopened.Lookup("a.php", hash, &got))
	assert.Equal(t, want, got)
}

func TestResultsInMemory(t *testing.T) {
	r := NewResults(1, "")
	require.NoError(t, r.Open())
	require.NoError(t, r.Store("a.php", "1", result{Warnings: 1}))
	require.NoError(t, r.Store("b.php", "2", result{Warnings: 2}))

	var got result
	assert.False(t, r.Lookup("a.php", "1", &got))
	assert.True(t, r.Lookup("b.php", "2", &got))
	assert.NoError(t, r.Close())
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t, HashBytes([]byte("a")), HashBytes([]byte("a")))
	assert.NotEqual(t, HashBytes([]byte("a")), HashBytes([]byte("b")))
	assert.Len(t, HashBytes(nil), 64)
}
