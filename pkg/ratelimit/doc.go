// Package ratelimit provides throughput control for edits against the
// Commons API. The SlidingWindow limiter bounds how many edits happen
// in any trailing window; the Pacer layers a randomized jitter sleep on
// top so successive edits don't fire at a fixed cadence.
package ratelimit
