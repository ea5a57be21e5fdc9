package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// flakyStore fails until healed.
type flakyStore struct {
	inner   Store
	failing bool
}

var errStoreDown = errors.New("store down")

func (f *flakyStore) Get(ctx context.Context, key string) (Usage, bool, error) {
	if f.failing {
		return Usage{}, false, errStoreDown
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyStore) CompareAndSwap(ctx context.Context, key string, prev, next Usage, ttl time.Duration) (bool, error) {
	if f.failing {
		return false, errStoreDown
	}
	return f.inner.CompareAndSwap(ctx, key, prev, next, ttl)
}

func TestFailoverStore_HealthyPrimary(t *testing.T) {
	primary := &flakyStore{inner: NewMemoryStore()}
	fallback := NewMemoryStore()
	fs := NewFailoverStore(primary, fallback, zap.NewNop())

	next := Usage{Day: WindowState{Count: 1, ResetAt: epoch.Unix() + 86400}}
	if swapped, err := fs.CompareAndSwap(ctx, "k", Usage{}, next, time.Hour); err != nil || !swapped {
		t.Fatalf("CAS: swapped=%v err=%v", swapped, err)
	}

	if _, ok, _ := primary.inner.Get(ctx, "k"); !ok {
		t.Error("write did not reach the primary store")
	}
	if _, ok, _ := fallback.Get(ctx, "k"); ok {
		t.Error("write leaked into the fallback store")
	}
}

func TestFailoverStore_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &flakyStore{inner: NewMemoryStore(), failing: true}
	fallback := NewMemoryStore()
	fs := NewFailoverStore(primary, fallback, zap.NewNop())

	tr := NewTracker(fs)
	tier := testTier(2, 10, 100)

	// Requests keep being limited out of the fallback while the primary is
	// down.
	for i := 0; i < 2; i++ {
		res, err := tr.CheckAndConsume(ctx, "k", tier, epoch)
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d blocked", i+1)
		}
	}
	res, err := tr.CheckAndConsume(ctx, "k", tier, epoch)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("minute limit not enforced via fallback store")
	}

	if _, ok, _ := fallback.Get(ctx, "k"); !ok {
		t.Error("fallback store holds no state")
	}
}

func TestFailoverStore_BreakerShortCircuitsAfterTrips(t *testing.T) {
	primary := &flakyStore{inner: NewMemoryStore(), failing: true}
	fs := NewFailoverStore(primary, NewMemoryStore(), zap.NewNop())

	// Trip the breaker.
	for i := 0; i < 3; i++ {
		fs.Get(ctx, "k")
	}
	if fs.breaker.state != breakerOpen {
		t.Fatalf("breaker state = %v, want open", fs.breaker.state)
	}

	// While open, the primary is not touched at all.
	primary.failing = false
	fs.CompareAndSwap(ctx, "k", Usage{}, Usage{Day: WindowState{Count: 1, ResetAt: 1}}, time.Hour)
	if _, ok, _ := primary.inner.Get(ctx, "k"); ok {
		t.Error("open breaker still routed a write to the primary")
	}
}
