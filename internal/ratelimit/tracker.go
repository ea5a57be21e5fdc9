package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/quantalink/qnet-gateway/internal/tier"
)

// ErrContention is returned when the tracker loses the CAS race too many
// times in a row. Callers should treat it as a transient internal error, not
// as a rate-limit decision.
var ErrContention = errors.New("rate limit state contention")

const casRetries = 5

// ttlSlack keeps an entry alive a little past its day reset so a request
// racing the expiry still sees consistent state.
const ttlSlack = time.Minute

// Result is the outcome of a single check-and-consume call.
type Result struct {
	Allowed bool

	// Window, Limit and ResetAt describe the blocking window when the call
	// was blocked. On an allowed call they carry the day window, which is the
	// canonical figure exposed to callers.
	Window  Window
	Limit   int64
	ResetAt time.Time

	// Remaining is the day-window budget left after this call, or -1 when
	// the day window is unlimited.
	Remaining int64
}

// Tracker maintains per-key counters across the three rolling windows and
// decides pass/block. All state lives in the injected Store; the tracker
// itself is stateless and safe for concurrent use.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// CheckAndConsume checks key against the tier's quotas at time now and, if no
// window is exhausted, consumes one request from all three windows. The check
// and the increments are atomic: a blocked call leaves every counter
// untouched, and two concurrent calls can never both pass a check that should
// have blocked one of them.
func (t *Tracker) CheckAndConsume(ctx context.Context, key string, tr *tier.Tier, now time.Time) (Result, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		cur, _, err := t.store.Get(ctx, key)
		if err != nil {
			return Result{}, err
		}

		rolled := rollWindows(cur, now)

		for _, w := range evaluationOrder {
			limit := limitFor(tr, w)
			if limit == tier.Unlimited {
				continue
			}
			if st := rolled.state(w); st.Count >= limit {
				return Result{
					Window:  w,
					Limit:   limit,
					ResetAt: time.Unix(st.ResetAt, 0).UTC(),
				}, nil
			}
		}

		next := rolled
		next.Day.Count++
		next.Hour.Count++
		next.Minute.Count++

		ttl := time.Duration(next.Day.ResetAt-now.Unix())*time.Second + ttlSlack
		swapped, err := t.store.CompareAndSwap(ctx, key, cur, next, ttl)
		if err != nil {
			return Result{}, err
		}
		if !swapped {
			// Lost the race against a concurrent call for the same key.
			continue
		}

		res := Result{
			Allowed:   true,
			Window:    WindowDay,
			Limit:     tr.RequestsPerDay,
			ResetAt:   time.Unix(next.Day.ResetAt, 0).UTC(),
			Remaining: -1,
		}
		if tr.RequestsPerDay != tier.Unlimited {
			res.Remaining = tr.RequestsPerDay - next.Day.Count
			if res.Remaining < 0 {
				res.Remaining = 0
			}
		}
		return res, nil
	}

	return Result{}, ErrContention
}

// rollWindows resets any window whose period has elapsed and lazily
// initialises windows that were never touched. The new reset time is always
// strictly in the future.
func rollWindows(u Usage, now time.Time) Usage {
	nowUnix := now.Unix()
	roll := func(st WindowState, w Window) WindowState {
		if st.ResetAt == 0 || nowUnix >= st.ResetAt {
			return WindowState{Count: 0, ResetAt: nowUnix + int64(w.Duration().Seconds())}
		}
		return st
	}
	u.Day = roll(u.Day, WindowDay)
	u.Hour = roll(u.Hour, WindowHour)
	u.Minute = roll(u.Minute, WindowMinute)
	return u
}

func limitFor(tr *tier.Tier, w Window) int64 {
	switch w {
	case WindowDay:
		return tr.RequestsPerDay
	case WindowHour:
		return tr.RequestsPerHour
	default:
		return tr.RequestsPerMinute
	}
}
