package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// FailoverStore fronts a shared primary store (Redis) with a circuit breaker
// and falls back to a local store while the primary is unhealthy. Counting
// accuracy degrades during a failover, because the fallback starts from
// empty state, but requests keep being limited instead of erroring out.
type FailoverStore struct {
	primary    Store
	fallback   Store
	breaker    *breaker
	log        *zap.Logger
	onFailover func()
}

func NewFailoverStore(primary, fallback Store, log *zap.Logger) *FailoverStore {
	s := &FailoverStore{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
	s.breaker = newBreaker(3, 15*time.Second, func(from, to breakerState) {
		log.Warn("rate limit store circuit state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	})
	return s
}

func (s *FailoverStore) Get(ctx context.Context, key string) (Usage, bool, error) {
	var (
		u  Usage
		ok bool
	)
	err := s.breaker.call(func() error {
		var err error
		u, ok, err = s.primary.Get(ctx, key)
		return err
	})
	if err != nil {
		s.notifyFailover()
		return s.fallback.Get(ctx, key)
	}
	return u, ok, nil
}

func (s *FailoverStore) CompareAndSwap(ctx context.Context, key string, prev, next Usage, ttl time.Duration) (bool, error) {
	var swapped bool
	err := s.breaker.call(func() error {
		var err error
		swapped, err = s.primary.CompareAndSwap(ctx, key, prev, next, ttl)
		return err
	})
	if err != nil {
		// If the circuit flipped between Get and CompareAndSwap the prev
		// snapshot may belong to the other store; the CAS then simply fails
		// and the tracker retries against the fallback.
		s.notifyFailover()
		return s.fallback.CompareAndSwap(ctx, key, prev, next, ttl)
	}
	return swapped, nil
}

// NotifyFailover registers a hook invoked each time a call is served by the
// fallback store.
func (s *FailoverStore) NotifyFailover(fn func()) {
	s.onFailover = fn
}

func (s *FailoverStore) notifyFailover() {
	if s.onFailover != nil {
		s.onFailover()
	}
}
