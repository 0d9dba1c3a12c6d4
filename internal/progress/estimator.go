// Package progress derives percent-complete and time-remaining estimates
// from accumulated byte counts.
package progress

import (
	"math"
	"time"
)

// Clock abstracts time so estimates can be tested deterministically.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// SystemClock uses the standard library time functions.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// Snapshot is one progress reading.
type Snapshot struct {
	ReceivedBytes int64
	TotalBytes    int64
	Percent       float64       // 0..100, two decimals
	Elapsed       time.Duration // since the first estimate
	Throughput    float64       // bytes per second, 0 when unknown
	Remaining     time.Duration // whole seconds, valid only if RemainingKnown
	// RemainingKnown is false while no throughput can be measured yet.
	RemainingKnown bool
}

// Compute is the pure estimate for received out of total bytes after elapsed.
func Compute(received, total int64, elapsed time.Duration) Snapshot {
	s := Snapshot{
		ReceivedBytes: received,
		TotalBytes:    total,
		Percent:       Percent(received, total),
		Elapsed:       elapsed,
	}

	if received >= total {
		s.RemainingKnown = true
		if elapsed > 0 {
			s.Throughput = float64(received) / elapsed.Seconds()
		}
		return s
	}

	if elapsed <= 0 || received <= 0 {
		return s
	}

	s.Throughput = float64(received) / elapsed.Seconds()
	remaining := math.Ceil(float64(total-received) / s.Throughput)
	s.Remaining = time.Duration(remaining) * time.Second
	s.RemainingKnown = true
	return s
}

// Percent returns received/total as a percentage rounded to two decimals and
// clamped to [0, 100]. An empty total counts as complete.
func Percent(received, total int64) float64 {
	if total <= 0 {
		return 100
	}
	p := math.Round(float64(received)/float64(total)*100*100) / 100
	return math.Max(0, math.Min(100, p))
}

// Estimator measures elapsed time from its first observation onwards.
type Estimator struct {
	clock   Clock
	start   time.Time
	started bool
}

// NewEstimator creates an estimator on the given clock; nil means SystemClock.
func NewEstimator(clock Clock) *Estimator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Estimator{clock: clock}
}

// Observe records a reading. The first call starts the clock, so waiting for
// the sender before any data flows does not count against throughput.
func (e *Estimator) Observe(received, total int64) Snapshot {
	if !e.started {
		e.start = e.clock.Now()
		e.started = true
	}
	return Compute(received, total, e.clock.Since(e.start))
}

// Started reports whether the first observation has happened.
func (e *Estimator) Started() bool {
	return e.started
}
