package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const windowSpan = time.Minute

// Limiter caps concurrent outbound transcription calls with a counting
// semaphore and smooths bursts with a sliding one-minute log of request start
// times. With limit N, sustained throughput is bounded to N requests per
// minute in addition to N in-flight calls. Slots are granted in semaphore
// order; there is no further fairness guarantee.
type Limiter struct {
	limit int
	sem   *semaphore.Weighted

	mu     sync.Mutex
	window []time.Time

	now func() time.Time
}

func New(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		limit: limit,
		sem:   semaphore.NewWeighted(int64(limit)),
		now:   time.Now,
	}
}

// Acquire blocks until a semaphore slot is free and the sliding window has
// room, then records the request start time. The caller must Release the slot
// when the request finishes.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.window) < l.limit {
			l.window = append(l.window, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.window[0].Add(windowSpan).Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.sem.Release(1)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Release frees the concurrency slot taken by Acquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// prune drops window entries older than one minute. Caller holds l.mu.
// Entries are appended in clock order, so the slice stays sorted.
func (l *Limiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.window) && now.Sub(l.window[cut]) >= windowSpan {
		cut++
	}
	if cut > 0 {
		l.window = append(l.window[:0], l.window[cut:]...)
	}
}

// InWindow reports how many request start times currently sit inside the
// rolling window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.window)
}
