package store

import "testing"

func TestNewWorldCacheSeedsTickZero(t *testing.T) {
	c := NewWorldCache[string]("world0")
	w, ok := c.Get(0)
	if !ok || w != "world0" {
		t.Fatalf("expected (0, world0) seeded, got %q ok=%v", w, ok)
	}
	if c.MaxKey() != 0 {
		t.Fatalf("expected max key 0, got %d", c.MaxKey())
	}
}

func TestFloorEntryAlwaysSucceeds(t *testing.T) {
	c := NewWorldCache[string]("world0")
	tick, w := c.FloorEntry(1000)
	if tick != 0 || w != "world0" {
		t.Fatalf("expected floor entry (0, world0) for an empty cache, got (%d, %q)", tick, w)
	}
}

func TestFloorEntryReturnsLargestKeyBelowTarget(t *testing.T) {
	c := NewWorldCache[string]("world0")
	c.InsertDerived(5, "world5")
	c.InsertDerived(10, "world10")

	tick, w := c.FloorEntry(7)
	if tick != 5 || w != "world5" {
		t.Fatalf("expected floor entry (5, world5), got (%d, %q)", tick, w)
	}

	tick, w = c.FloorEntry(10)
	if tick != 10 || w != "world10" {
		t.Fatalf("expected floor entry (10, world10) at exact match, got (%d, %q)", tick, w)
	}
}

func TestInsertDerivedIsIdempotent(t *testing.T) {
	c := NewWorldCache[string]("world0")
	c.InsertDerived(5, "world5")
	c.InsertDerived(5, "different-value-should-be-ignored")

	w, _ := c.Get(5)
	if w != "world5" {
		t.Fatalf("expected re-insert at existing key to be a no-op, got %q", w)
	}
	if c.MaxKey() != 5 {
		t.Fatalf("expected max key 5, got %d", c.MaxKey())
	}
}

func TestSinceReturnsAscendingWorldsAfterTick(t *testing.T) {
	c := NewWorldCache[string]("world0")
	c.InsertDerived(1, "world1")
	c.InsertDerived(2, "world2")
	c.InsertDerived(3, "world3")

	got := c.Since(1)
	want := []string{"world2", "world3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d worlds, got %d (%v)", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("index %d: expected %q, got %q", i, w, got[i])
		}
	}
}

func TestSinceEmptyWhenNothingNew(t *testing.T) {
	c := NewWorldCache[string]("world0")
	c.InsertDerived(1, "world1")
	if got := c.Since(1); len(got) != 0 {
		t.Fatalf("expected no worlds after the most recent tick, got %v", got)
	}
}

func TestInsertDerivedOutOfOrderKeepsKeysSorted(t *testing.T) {
	c := NewWorldCache[string]("world0")
	c.InsertDerived(3, "world3")
	c.InsertDerived(1, "world1")
	c.InsertDerived(2, "world2")

	got := c.Since(0)
	want := []string{"world1", "world2", "world3"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("index %d: expected %q, got %q (full: %v)", i, w, got[i], got)
		}
	}
}
