package trace

// Clock returns monotonic nanoseconds.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

// Now calls f.
func (f ClockFunc) Now() uint64 { return f() }

// MonotonicClock reads the system monotonic clock. On Linux it is
// CLOCK_MONOTONIC, the base bpf_ktime_get_ns uses, so in-process stamps and
// kernel probe stamps are directly comparable.
var MonotonicClock Clock = ClockFunc(monotonicNow)
