package cache

import (
	"strconv"
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set("a", "1")
	got, ok := c.Get("a")
	if !ok || got != "1" {
		t.Errorf("Get(a) = %q, %v; want \"1\", true", got, ok)
	}

	c.Set("a", "2")
	got, _ = c.Get("a")
	if got != "2" {
		t.Errorf("Get(a) after overwrite = %q; want \"2\"", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d; want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(strconv.Itoa(i), i)
	}

	// Touch "0" so "1" becomes the eviction candidate.
	c.Get("0")
	c.Set("3", 3)

	if _, ok := c.Get("1"); ok {
		t.Error("expected key 1 to be evicted")
	}
	if _, ok := c.Get("0"); !ok {
		t.Error("expected recently used key 0 to survive")
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d; want 3", c.Size())
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[string](4, 10*time.Millisecond)
	c.Set("a", "1")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c := NewLRUCache[string](4, 10*time.Millisecond)
	c.Set("a", "1")
	c.Set("b", "2")

	time.Sleep(20 * time.Millisecond)
	c.Set("c", "3")

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d; want 2", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d; want 1", c.Size())
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	c.Set("a", "1")
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Error("expected deleted key to miss")
	}
}
