package cache

import (
	"fmt"
	"strings"
	"testing"
)

func BenchmarkCacheGet(b *testing.B) {
	c := New(Options{MaxSize: 10000})
	value := []byte(strings.Repeat("x", 100))
	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("key%d", i), "h", value)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key999")
	}
}

func BenchmarkCacheSet(b *testing.B) {
	c := New(Options{MaxSize: 10000})
	value := []byte(strings.Repeat("x", 100))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(fmt.Sprintf("key%d", i), "h", value)
	}
}

func BenchmarkResultsLookup(b *testing.B) {
	r := NewResults(100, "")
	type result struct {
		Blocks []string
	}
	_ = r.Store("a.php", "h", result{Blocks: []string{"block_0", "block_1"}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out result
		r.Lookup("a.php", "h", &out)
	}
}
