package scheduler

import (
	"errors"
	"time"
)

// ErrZeroInterval is returned when a recurring schedule resolves to 0 seconds.
var ErrZeroInterval = errors.New("interval cannot be 0")

// Every describes a recurring interval as the sum of its components.
type Every struct {
	Seconds int
	Minutes int
	Hours   int
}

// EveryDuration converts d into an Every, truncated to whole seconds.
func EveryDuration(d time.Duration) Every {
	return Every{Seconds: int(d / time.Second)}
}

// TotalSeconds returns the resolved interval in seconds.
func (e Every) TotalSeconds() int64 {
	return int64(e.Seconds) + int64(e.Minutes)*60 + int64(e.Hours)*60*60
}

// Interval returns the resolved interval as a duration.
func (e Every) Interval() time.Duration {
	return time.Duration(e.TotalSeconds()) * time.Second
}

// Validate fails with ErrZeroInterval for a zero interval.
func (e Every) Validate() error {
	if e.TotalSeconds() <= 0 {
		return ErrZeroInterval
	}
	return nil
}
