package ratelimit

import (
	"context"
	"time"
)

// Window is a fixed-duration counting period over which a quota is enforced.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// evaluationOrder is the fixed order in which windows are checked. The first
// exhausted window blocks the call.
var evaluationOrder = [3]Window{WindowDay, WindowHour, WindowMinute}

func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// WindowState is the counter for one window of one key. ResetAt is unix
// seconds; zero means the window has never been touched.
type WindowState struct {
	Count   int64 `json:"c"`
	ResetAt int64 `json:"r"`
}

// Usage holds all three window counters for a key. It is a value type so
// stores can compare snapshots for equality.
type Usage struct {
	Day    WindowState `json:"d"`
	Hour   WindowState `json:"h"`
	Minute WindowState `json:"m"`
}

func (u Usage) state(w Window) WindowState {
	switch w {
	case WindowDay:
		return u.Day
	case WindowHour:
		return u.Hour
	default:
		return u.Minute
	}
}

// Store is the shared counter table behind the tracker. Implementations must
// make CompareAndSwap atomic with respect to concurrent calls for the same
// key; the tracker builds its check-and-increment on top of that.
type Store interface {
	// Get returns the current usage snapshot for key. ok is false when the
	// key has no recorded state.
	Get(ctx context.Context, key string) (usage Usage, ok bool, err error)

	// CompareAndSwap replaces the state for key with next if and only if the
	// stored state still equals prev. A missing entry compares equal to the
	// zero Usage. ttl bounds how long the entry may outlive its last update.
	CompareAndSwap(ctx context.Context, key string, prev, next Usage, ttl time.Duration) (swapped bool, err error)
}
