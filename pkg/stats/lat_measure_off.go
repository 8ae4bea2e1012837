//go:build !stats
// +build !stats

package stats

import "time"

// Without the stats tag no latency is measured and ActorStats keeps a zero
// barrier latency.

func TimerBegin() time.Time { return time.Time{} }

func Elapsed(time.Time) time.Duration { return 0 }
