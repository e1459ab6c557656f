package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Window is a fixed counting window: at most Limit hits per Period.
type Window struct {
	Name   string
	Limit  int
	Period time.Duration
}

// Limiter counts one hit per call in every window and refuses the call when
// any window overflows.
type Limiter struct {
	store   WindowStore
	scope   string
	windows []Window
}

// NewLimiter drops windows with a non-positive limit or period, so a limiter
// built from zero limits always allows.
func NewLimiter(store WindowStore, scope string, windows ...Window) *Limiter {
	active := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Limit > 0 && w.Period > 0 {
			active = append(active, w)
		}
	}
	return &Limiter{store: store, scope: scope, windows: active}
}

// NewSwipeLimiter caps swipes per actor per minute and per ten seconds.
func NewSwipeLimiter(store WindowStore, perMinute, per10Sec int) *Limiter {
	return NewLimiter(store, "swipes",
		Window{Name: "min", Limit: perMinute, Period: time.Minute},
		Window{Name: "10s", Limit: per10Sec, Period: 10 * time.Second},
	)
}

// AllowSwipe reports whether actorID may swipe now. When it may not, the
// first return value is the seconds until the longest-blocking window resets.
func (l *Limiter) AllowSwipe(ctx context.Context, actorID string) (int64, bool, error) {
	if strings.TrimSpace(actorID) == "" {
		return 0, false, fmt.Errorf("invalid actor id")
	}
	if len(l.windows) == 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, l.key(w, actorID), w.Period)
		if err != nil {
			return 0, false, fmt.Errorf("rate window %s: %w", w.Name, err)
		}
		if count > int64(w.Limit) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}
	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

func (l *Limiter) key(w Window, actorID string) string {
	return "rate:" + l.scope + ":" + w.Name + ":" + actorID
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	return int64((d + time.Second - 1) / time.Second)
}
