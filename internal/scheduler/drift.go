package scheduler

import "time"

// DriftOffset returns the phase of now within interval (whole seconds).
// It is captured once when a recurring schedule starts and used as the
// reference every later sleep is realigned to.
func DriftOffset(now time.Time, interval int64) int64 {
	if interval <= 0 {
		return 0
	}
	return now.Unix() % interval
}

// NextSleep returns how long a recurring schedule should sleep before its
// next fire.
//
// Each cycle wakes slightly late, so the phase creeps forward. When it has
// crept by exactly one second the sleep is shortened by one second, which
// puts the next wake back on driftOffset. Larger drifts are not corrected.
func NextSleep(now time.Time, driftOffset, interval int64) time.Duration {
	if interval <= 1 {
		return time.Duration(interval) * time.Second
	}
	if (driftOffset+1)%interval == now.Unix()%interval {
		return time.Duration(interval-1) * time.Second
	}
	return time.Duration(interval) * time.Second
}
