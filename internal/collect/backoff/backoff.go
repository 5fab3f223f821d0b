// Package backoff computes retry wait intervals.
//
// The schedule is plain doubling capped at a maximum: with the default
// 60s initial and 1800s cap the first attempts wait 60, 120, 240, 480,
// 960, 1800, 1800, ... seconds.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Schedule holds the backoff parameters. The zero value is not usable;
// construct with New or fill all fields.
type Schedule struct {
	Initial time.Duration
	Max     time.Duration

	// Jitter adds [0, Jitter*wait) on top of the computed wait. Zero
	// disables it and keeps the schedule fully deterministic.
	Jitter float64
}

// Defaults matching the production cron configuration.
const (
	DefaultInitial = 60 * time.Second
	DefaultMax     = 30 * time.Minute
)

// New returns a deterministic schedule with the given bounds.
func New(initial, max time.Duration) Schedule {
	return Schedule{Initial: initial, Max: max}
}

// Wait returns the delay before the next try after attempt n (1-based).
func (s Schedule) Wait(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(s.Initial) * math.Pow(2, float64(attempt-1))
	if d > float64(s.Max) {
		d = float64(s.Max)
	}
	if s.Jitter > 0 {
		d += d * rand.Float64() * s.Jitter
	}
	return time.Duration(d)
}
