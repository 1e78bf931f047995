package store

import (
	"errors"
	"testing"

	"netcode/internal/ids"
)

func TestNewInputStoreSeedsTickZero(t *testing.T) {
	s := NewInputStore[string]()
	inner, ok := s.LookupAuth(0)
	if !ok {
		t.Fatalf("expected tick 0 to be present")
	}
	if len(inner) != 0 {
		t.Fatalf("expected empty map at tick 0, got %v", inner)
	}
	maxKey, ok := s.MaxAuthKey()
	if !ok || maxKey != 0 {
		t.Fatalf("expected max auth key 0, got %d ok=%v", maxKey, ok)
	}
}

func TestInsertAuthRejectsDuplicate(t *testing.T) {
	s := NewInputStore[string]()
	if err := s.InsertAuth(1, map[ids.PlayerId]string{1: "a"}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	err := s.InsertAuth(1, map[ids.PlayerId]string{1: "b"})
	var dup ErrDuplicateAuth
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicateAuth, got %v", err)
	}
	if dup.Tick != 1 {
		t.Fatalf("expected duplicate tick 1, got %d", dup.Tick)
	}
	inner, _ := s.LookupAuth(1)
	if inner[1] != "a" {
		t.Fatalf("expected original value preserved, got %q", inner[1])
	}
}

func TestInsertAuthAdvancesMaxAuthKey(t *testing.T) {
	s := NewInputStore[string]()
	s.InsertAuth(5, map[ids.PlayerId]string{})
	s.InsertAuth(2, map[ids.PlayerId]string{})
	maxKey, ok := s.MaxAuthKey()
	if !ok || maxKey != 5 {
		t.Fatalf("expected max auth key 5, got %d", maxKey)
	}
}

func TestMergeHintPreservesSelfOverIncoming(t *testing.T) {
	s := NewInputStore[string]()
	s.InsertHintOne(10, 1, "self-value")

	s.MergeHint(10, map[ids.PlayerId]string{1: "server-override", 2: "other"}, 1, true)

	inner, ok := s.LookupHint(10)
	if !ok {
		t.Fatalf("expected hint entry at tick 10")
	}
	if inner[1] != "self-value" {
		t.Fatalf("expected self hint preserved, got %q", inner[1])
	}
	if inner[2] != "other" {
		t.Fatalf("expected incoming hint for other player, got %q", inner[2])
	}
}

func TestMergeHintWithoutSelfUsesIncomingThenOld(t *testing.T) {
	s := NewInputStore[string]()
	s.InsertHintOne(10, 3, "old-third-party")

	s.MergeHint(10, map[ids.PlayerId]string{3: "new-third-party"}, 0, false)

	inner, _ := s.LookupHint(10)
	if inner[3] != "new-third-party" {
		t.Fatalf("expected incoming hint to win when no self id known, got %q", inner[3])
	}
}

func TestMergeHintNoExistingEntryStoresCopy(t *testing.T) {
	s := NewInputStore[string]()
	incoming := map[ids.PlayerId]string{1: "a"}
	s.MergeHint(20, incoming, 1, true)

	incoming[1] = "mutated"
	inner, _ := s.LookupHint(20)
	if inner[1] != "a" {
		t.Fatalf("expected stored hint to be an independent copy, got %q", inner[1])
	}
}

func TestInsertHintOneUpsertsSingleCell(t *testing.T) {
	s := NewInputStore[string]()
	s.InsertHintOne(7, 1, "a")
	s.InsertHintOne(7, 2, "b")
	inner, ok := s.LookupHint(7)
	if !ok || len(inner) != 2 {
		t.Fatalf("expected two hint cells, got %v", inner)
	}
	if inner[1] != "a" || inner[2] != "b" {
		t.Fatalf("unexpected hint contents: %v", inner)
	}
}

func TestLookupAuthMissingTick(t *testing.T) {
	s := NewInputStore[string]()
	if _, ok := s.LookupAuth(999); ok {
		t.Fatalf("expected missing tick to report ok=false")
	}
}
