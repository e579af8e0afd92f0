package lru

import (
	"fmt"
	"sync"
	"testing"

	"github.com/haukened/rr-inspect/internal/inspect/repos/rules"
)

func TestMatchCache_HitMissAndPut(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, ok := c.Get("ip:10.0.0.1"); ok {
		t.Fatalf("expected miss before put")
	}

	c.Put("ip:10.0.0.1", true)

	got, ok := c.Get("ip:10.0.0.1")
	if !ok || !got {
		t.Fatalf("unexpected get: ok=%v got=%v", ok, got)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Capacity != 2 || st.Size != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestMatchCache_NegativeEntry(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.Put("domain:ok.com", false)

	got, ok := c.Get("domain:ok.com")
	if !ok || got {
		t.Fatalf("expected cached negative: ok=%v got=%v", ok, got)
	}
}

func TestMatchCache_Eviction(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.Put("a", true)
	c.Put("b", true)
	c.Put("c", true)
	if got := c.Len(); got != 2 {
		t.Fatalf("len=%d want=2 after eviction", got)
	}
	if ev := c.Stats().Evictions; ev != 1 {
		t.Fatalf("evictions=%d want=1", ev)
	}
}

func TestMatchCache_GetDoesNotPromote(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.Put("a", true)
	c.Put("b", true)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected hit for a")
	}
	c.Put("c", true)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should be evicted first: reads must not reorder entries")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("expected b to survive")
	}
}

func TestMatchCache_ParallelReads(t *testing.T) {
	c, err := New(64)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 32; i++ {
		c.Put(fmt.Sprintf("ip:10.0.0.%d", i), i%2 == 0)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				got, ok := c.Get(fmt.Sprintf("ip:10.0.0.%d", i%32))
				if !ok || got != (i%32%2 == 0) {
					t.Errorf("unexpected get at %d: ok=%v got=%v", i, ok, got)
					return
				}
			}
		}()
	}
	wg.Wait()

	if st := c.Stats(); st.Hits != 8000 || st.Misses != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestMatchCache_Disabled(t *testing.T) {
	c, err := New(0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.Put("x", true)
	if _, ok := c.Get("x"); ok {
		t.Fatalf("expected miss in disabled cache")
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("len=%d want=0 for disabled", got)
	}
	if st := c.Stats(); st != (rules.CacheStats{}) {
		t.Fatalf("disabled cache should report zero stats, got %+v", st)
	}
}
