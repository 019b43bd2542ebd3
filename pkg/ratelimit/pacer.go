package ratelimit

import (
	"math/rand"
	"time"
)

// Pacer spaces out edits against the remote service. It combines two
// mechanisms: a sliding one-minute window bounding the worst-case
// burst rate, and a randomized jitter sleep smoothing the steady-state
// spacing between edits.
type Pacer struct {
	window    Limiter
	baseSleep time.Duration

	sleep func(time.Duration)
	randf func() float64
}

// NewPacer creates a pacer allowing at most maxPerMinute edits in any
// trailing 60 second interval, with a jitter sleep uniformly
// distributed in [0.5*baseSleep, 1.5*baseSleep] after each edit.
func NewPacer(maxPerMinute int, baseSleep time.Duration) *Pacer {
	return &Pacer{
		window:    NewSlidingWindow(maxPerMinute, time.Minute),
		baseSleep: baseSleep,
		sleep:     time.Sleep,
		randf:     rand.Float64,
	}
}

// Pause blocks until the next edit is allowed: waits out the window if
// it is full, records the edit timestamp, then applies the jitter sleep.
func (p *Pacer) Pause() {
	p.window.Wait()

	if p.baseSleep > 0 {
		jittered := time.Duration(float64(p.baseSleep) * (0.5 + p.randf()))
		p.sleep(jittered)
	}
}

// Window exposes the underlying limiter, mainly for inspection
func (p *Pacer) Window() Limiter {
	return p.window
}
