package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if an event is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another event
	Wait()
	// Reset resets the rate limiter state
	Reset()
	// Len reports how many events currently count against the limit
	Len() int
}

// SlidingWindow implements a sliding window rate limiter. Events are
// counted over the trailing window; the limit holds for any window-sized
// interval, not just aligned minutes.
type SlidingWindow struct {
	windowSize time.Duration
	maxEvents  int
	events     []time.Time
	mu         sync.Mutex

	now   func() time.Time
	sleep func(time.Duration)
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxEvents int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize: windowSize,
		maxEvents:  maxEvents,
		events:     make([]time.Time, 0, maxEvents),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Allow checks if an event can proceed, recording it if so
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.dropExpired(now)

	if len(sw.events) < sw.maxEvents {
		sw.events = append(sw.events, now)
		return true
	}

	return false
}

// Wait blocks until an event is allowed, then records it. When the
// window is saturated it sleeps until the oldest event exits the
// window, with a one second floor so a dense burst can't spin.
func (sw *SlidingWindow) Wait() {
	for !sw.Allow() {
		sw.mu.Lock()
		var wait time.Duration
		if len(sw.events) > 0 {
			oldest := sw.events[0]
			wait = sw.windowSize - sw.now().Sub(oldest)
		}
		if wait < time.Second {
			wait = time.Second
		}
		sleep := sw.sleep
		sw.mu.Unlock()

		sleep(wait)
	}
}

// Reset clears all recorded events
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.events = sw.events[:0]
}

// Len returns the number of events currently inside the window
func (sw *SlidingWindow) Len() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.dropExpired(sw.now())
	return len(sw.events)
}

// dropExpired removes events outside the sliding window. Caller holds the lock.
func (sw *SlidingWindow) dropExpired(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.events) && sw.events[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.events, sw.events[i:])
		sw.events = sw.events[:len(sw.events)-i]
	}
}
