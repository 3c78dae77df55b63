package scheduler

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// RepeatEvery invokes action on a wall-clock aligned recurring schedule until
// ctx is cancelled. Each invocation runs on its own goroutine and is never
// awaited. With runFirst the action also fires once right away.
//
// A zero interval fails with ErrZeroInterval before anything is spawned,
// and so does a ctx that is already done. Otherwise RepeatEvery blocks and
// returns ctx.Err() once cancelled.
func RepeatEvery(ctx context.Context, clk clock.Clock, every Every, runFirst bool, action func()) error {
	return repeatEvery(ctx, clk, every, runFirst, action, nil)
}

// repeatEvery is RepeatEvery with a hook called whenever a sleep is
// shortened to correct drift.
func repeatEvery(
	ctx context.Context,
	clk clock.Clock,
	every Every,
	runFirst bool,
	action func(),
	onAdjust func(sleep time.Duration),
) error {
	if err := every.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	interval := every.TotalSeconds()

	drift := DriftOffset(clk.Now(), interval)
	if runFirst {
		go action()
	}

	full := every.Interval()
	for {
		wait := NextSleep(clk.Now(), drift, interval)
		if wait != full && onAdjust != nil {
			onAdjust(wait)
		}
		if !sleep(ctx, clk, wait) {
			return ctx.Err()
		}
		go action()
	}
}

// Delay waits d, then invokes action once on its own goroutine without
// awaiting it. It returns false, without firing, if ctx ends first.
func Delay(ctx context.Context, clk clock.Clock, d time.Duration, action func()) bool {
	if d > 0 && !sleep(ctx, clk, d) {
		return false
	}
	go action()
	return true
}

// sleep blocks for d on clk. It reports false when ctx was cancelled first.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	t := clk.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C():
		return true
	}
}
