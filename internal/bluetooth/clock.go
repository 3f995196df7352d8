package bluetooth

import "time"

// monotonicEpoch anchors the process-relative monotonic clock. time.Sub on
// two time.Time values read in the same process uses the runtime monotonic
// reading, so durations measured against this anchor are immune to
// wall-clock adjustments (NTP sync, manual changes).
var monotonicEpoch = time.Now()

// MonotonicTime returns seconds elapsed on the process monotonic clock.
//
// Values are only comparable within a single process run; the checkpoint
// file converts them to wall-clock time before writing (see timeConverter).
func MonotonicTime() float64 {
	return time.Since(monotonicEpoch).Seconds()
}

// timeConverter bridges monotonic timestamps (in-memory) and wall-clock
// timestamps (durable storage). The offset is sampled exactly once at
// construction, so a batch of timestamps converted through the same
// converter stays internally consistent even if the wall clock advances
// between individual conversions.
type timeConverter struct {
	// offset is wall_now - monotonic_now at the sample instant, in seconds.
	offset float64
}

// newTimeConverter samples the monotonic/wall-clock offset from now.
// The time.Time must carry a monotonic reading (i.e., come from time.Now).
func newTimeConverter(now time.Time) timeConverter {
	wall := float64(now.UnixNano()) / float64(time.Second)
	mono := now.Sub(monotonicEpoch).Seconds()
	return timeConverter{offset: wall - mono}
}

// toStorage converts a monotonic timestamp to a wall-clock timestamp.
func (c timeConverter) toStorage(monotonic float64) float64 {
	return monotonic + c.offset
}

// fromStorage converts a wall-clock timestamp to a monotonic timestamp.
func (c timeConverter) fromStorage(wall float64) float64 {
	return wall - c.offset
}
