package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute, WithClock(clock.Now))

	c.Set("2024_March", "settled")
	clock.Advance(30 * time.Second)
	if _, ok := c.Get("2024_March"); !ok {
		t.Fatal("entry expired too early")
	}

	clock.Advance(31 * time.Second)
	if _, ok := c.Get("2024_March"); ok {
		t.Fatal("fixed TTL must not be renewed by Get")
	}
}

func TestLRUCacheSlidingExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute, WithSlidingExpiry(), WithClock(clock.Now))

	c.Set("session", "step1")
	for i := 0; i < 3; i++ {
		clock.Advance(45 * time.Second)
		if _, ok := c.Get("session"); !ok {
			t.Fatalf("session expired after access %d", i)
		}
	}

	clock.Advance(61 * time.Second)
	if _, ok := c.Get("session"); ok {
		t.Fatal("idle session should expire")
	}
}

func TestLRUCacheCleanExpiredAndClear(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock(clock.Now))
	c.Set("old", 1)
	clock.Advance(2 * time.Minute)
	c.Set("new", 2)

	m := NewManager()
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d", c.Size())
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}
