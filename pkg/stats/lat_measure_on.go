//go:build stats
// +build stats

package stats

import "time"

// TimerBegin starts a latency measurement.
func TimerBegin() time.Time {
	return time.Now()
}

// Elapsed is the time since start. A measurement that never began reports
// zero.
func Elapsed(start time.Time) time.Duration {
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}
