package ratelimit

import (
	"testing"
	"time"
)

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	s := NewMemoryStore()

	next := Usage{Day: WindowState{Count: 1, ResetAt: epoch.Unix() + 86400}}

	// Absent entry compares equal to the zero Usage.
	swapped, err := s.CompareAndSwap(ctx, "k", Usage{}, next, time.Hour)
	if err != nil || !swapped {
		t.Fatalf("CAS against absent entry: swapped=%v err=%v", swapped, err)
	}

	got, ok, _ := s.Get(ctx, "k")
	if !ok || got != next {
		t.Fatalf("Get = %+v ok=%v, want %+v", got, ok, next)
	}

	// Stale snapshot must not win.
	swapped, _ = s.CompareAndSwap(ctx, "k", Usage{}, next, time.Hour)
	if swapped {
		t.Error("CAS with stale snapshot should fail")
	}

	// Fresh snapshot wins.
	next2 := next
	next2.Day.Count = 2
	swapped, _ = s.CompareAndSwap(ctx, "k", next, next2, time.Hour)
	if !swapped {
		t.Error("CAS with current snapshot should succeed")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	u, ok, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("ok = true for missing key")
	}
	if u != (Usage{}) {
		t.Errorf("usage = %+v, want zero", u)
	}
}

func TestMemoryStore_CleanupEvictsLapsedDays(t *testing.T) {
	s := NewMemoryStore()

	live := Usage{Day: WindowState{Count: 5, ResetAt: epoch.Add(time.Hour).Unix()}}
	stale := Usage{Day: WindowState{Count: 5, ResetAt: epoch.Add(-time.Hour).Unix()}}

	s.CompareAndSwap(ctx, "live", Usage{}, live, time.Hour)
	s.CompareAndSwap(ctx, "stale", Usage{}, stale, time.Hour)

	s.Cleanup(epoch)

	if _, ok, _ := s.Get(ctx, "live"); !ok {
		t.Error("live entry evicted")
	}
	if _, ok, _ := s.Get(ctx, "stale"); ok {
		t.Error("stale entry survived cleanup")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
