package auction

import "time"

// SelectOrder returns the order due at now and its position in the strategy.
//
// Day zero is the period in which the auction starts. The day index is the
// ceiling of the elapsed periods, so the next order becomes due the instant a
// period boundary is crossed, while now == start still selects index 0. The
// rotation is always measured from start, never from the previous run.
func SelectOrder(s Strategy, start, now time.Time, period time.Duration) (StrategyOrder, int) {
	if len(s) == 0 || period.Milliseconds() <= 0 {
		return StrategyOrder{}, -1
	}
	idx := RotationIndex(len(s), start, now, period)
	return s[idx], idx
}

// RotationIndex computes ceil(max(0, now-start) / period) mod n.
func RotationIndex(n int, start, now time.Time, period time.Duration) int {
	elapsed := now.UnixMilli() - start.UnixMilli()
	if elapsed < 0 {
		elapsed = 0
	}
	periodMs := period.Milliseconds()
	if n <= 0 || periodMs <= 0 {
		return 0
	}
	day := elapsed / periodMs
	if elapsed%periodMs != 0 {
		day++
	}
	return int(day % int64(n))
}
