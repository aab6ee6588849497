package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// After returns Now unless it is not strictly later than last, in which case
// the smallest representable instant after last is returned. Audit entries of
// a single instance rely on it to stay strictly ordered even when the wall
// clock is coarse or stubbed.
func After(last time.Time) time.Time {
	now := Now()
	if last.IsZero() || now.After(last) {
		return now
	}
	return last.Add(time.Nanosecond)
}

// Sequence returns a NowFunc replacement producing start, start+step, ...
// on consecutive calls.
func Sequence(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		ret := next
		next = next.Add(step)
		return ret
	}
}
