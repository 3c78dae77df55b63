package app

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// hourly fires at minute 0 of every hour.
var hourly = mustSchedule("@hourly")

func mustSchedule(spec string) cron.Schedule {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		panic(fmt.Sprintf("invalid cron spec %q: %v", spec, err))
	}
	return s
}

// NextTopOfHour returns the next UTC hour boundary strictly after now.
func NextTopOfHour(now time.Time) time.Time {
	return hourly.Next(now.UTC())
}

// StartDelay returns how long to wait before starting the simulation so it
// begins on a UTC hour boundary, truncated to whole seconds. It is zero
// when align is off or now is already on the hour.
func StartDelay(now time.Time, align bool) time.Duration {
	now = now.UTC()
	if !align || (now.Minute() == 0 && now.Second() == 0) {
		return 0
	}
	return NextTopOfHour(now).Sub(now).Truncate(time.Second)
}

// formatDelay renders d as MM:SS, the minutes part may exceed 59 only when
// d is an hour or longer.
func formatDelay(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
