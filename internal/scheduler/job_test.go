package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/MrSnakeDoc/ctfboard/internal/logger"
)

var epoch = time.Unix(1_700_000_000, 0)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestJob(t *testing.T, clk *clocktesting.FakeClock, opts Options, action Action) *Job {
	t.Helper()
	opts.Clock = clk
	opts.Logger = logger.New("error", false)
	job, err := NewJob("test", opts, action)
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	t.Cleanup(job.Cancel)
	return job
}

func TestNewJobZeroInterval(t *testing.T) {
	job, err := NewJob("rounds", Options{RunFirst: true}, func(context.Context) {})
	if !errors.Is(err, ErrZeroInterval) {
		t.Fatalf("NewJob() error = %v, want ErrZeroInterval", err)
	}
	if job != nil {
		t.Error("NewJob() should not return a job on error")
	}
}

func TestNewJobValidation(t *testing.T) {
	tests := []struct {
		name   string
		job    string
		opts   Options
		action Action
	}{
		{"empty name", "", Options{Every: Every{Seconds: 1}}, func(context.Context) {}},
		{"nil action", "x", Options{Every: Every{Seconds: 1}}, nil},
		{"negative delay", "x", Options{Every: Every{Seconds: 1}, Delay: -time.Second}, func(context.Context) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJob(tt.job, tt.opts, tt.action); err == nil {
				t.Error("NewJob() should have failed")
			}
		})
	}
}

func TestRepeatEveryZeroIntervalSpawnsNothing(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	var calls atomic.Int32

	err := RepeatEvery(context.Background(), clk, Every{}, true, func() { calls.Add(1) })
	if !errors.Is(err, ErrZeroInterval) {
		t.Fatalf("RepeatEvery() error = %v, want ErrZeroInterval", err)
	}

	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("action called %d times, want 0", calls.Load())
	}
	if clk.HasWaiters() {
		t.Error("no timer should have been armed")
	}
}

func TestRepeatEveryStopsOnCancel(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- RepeatEvery(ctx, clk, Every{Seconds: 30}, false, func() {})
	}()

	waitFor(t, "timer armed", clk.HasWaiters)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RepeatEvery() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RepeatEvery did not return after cancel")
	}
}

func TestRepeatEveryCancelledContextSpawnsNothing(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32

	err := RepeatEvery(ctx, clk, Every{Seconds: 30}, true, func() { calls.Add(1) })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RepeatEvery() error = %v, want context.Canceled", err)
	}

	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("action called %d times, want 0", calls.Load())
	}
}

func TestJobStartWithCancelledContextNeverFires(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32

	job := newTestJob(t, clk, Options{Every: Every{Minutes: 10}, RunFirst: true},
		func(context.Context) { calls.Add(1) })

	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-job.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("job loop did not exit")
	}

	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("action called %d times, want 0", calls.Load())
	}
	if got := job.Info().Fires; got != 0 {
		t.Errorf("Fires = %d, want 0", got)
	}
	if got := job.Phase(); got != PhaseStopped {
		t.Errorf("Phase() = %s, want stopped", got)
	}
}

func TestJobRunFirstAndRecurring(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	var calls atomic.Int32

	job := newTestJob(t, clk, Options{Every: Every{Minutes: 10}, RunFirst: true},
		func(context.Context) { calls.Add(1) })

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "first firing", func() bool { return calls.Load() == 1 })
	waitFor(t, "timer armed", clk.HasWaiters)

	clk.Step(10 * time.Minute)
	waitFor(t, "second firing", func() bool { return calls.Load() == 2 })

	info := job.Info()
	if info.Phase != "recurring" {
		t.Errorf("Phase = %s, want recurring", info.Phase)
	}
	if info.Fires != 2 {
		t.Errorf("Fires = %d, want 2", info.Fires)
	}
	if info.Interval != 10*time.Minute {
		t.Errorf("Interval = %v, want 10m", info.Interval)
	}
	if info.LastFire.IsZero() {
		t.Error("LastFire should be set")
	}
}

func TestJobWithoutRunFirst(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	var calls atomic.Int32

	job := newTestJob(t, clk, Options{Every: Every{Minutes: 5}},
		func(context.Context) { calls.Add(1) })
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "timer armed", clk.HasWaiters)
	if calls.Load() != 0 {
		t.Fatalf("calls = %d before first interval, want 0", calls.Load())
	}

	clk.Step(5 * time.Minute)
	waitFor(t, "first firing", func() bool { return calls.Load() == 1 })
}

func TestJobInitialDelayPhases(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	var calls atomic.Int32

	job := newTestJob(t, clk, Options{Every: Every{Hours: 1}, RunFirst: true, Delay: 4 * time.Hour},
		func(context.Context) { calls.Add(1) })

	if job.Phase() != PhaseIdle {
		t.Fatalf("Phase = %v before start, want idle", job.Phase())
	}
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if job.Phase() != PhaseWaiting {
		t.Fatalf("Phase = %v, want waiting", job.Phase())
	}

	waitFor(t, "delay timer armed", clk.HasWaiters)
	clk.Step(3 * time.Hour)
	if calls.Load() != 0 {
		t.Fatalf("job fired during its initial delay")
	}

	clk.Step(time.Hour)
	waitFor(t, "run-first firing after delay", func() bool { return calls.Load() == 1 })
	waitFor(t, "recurring phase", func() bool { return job.Phase() == PhaseRecurring })

	waitFor(t, "interval timer armed", clk.HasWaiters)
	clk.Step(time.Hour)
	waitFor(t, "hourly firing", func() bool { return calls.Load() == 2 })
}

func TestJobCancelIsIdempotent(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	job := newTestJob(t, clk, Options{Every: Every{Seconds: 10}}, func(context.Context) {})

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "timer armed", clk.HasWaiters)

	job.Cancel()
	job.Cancel()

	select {
	case <-job.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("job loop did not exit after Cancel")
	}
	job.Cancel()

	if job.Phase() != PhaseStopped {
		t.Errorf("Phase = %v, want stopped", job.Phase())
	}
	if err := job.Start(context.Background()); !errors.Is(err, ErrJobStopped) {
		t.Errorf("Start() after Cancel = %v, want ErrJobStopped", err)
	}
}

func TestJobCancelBeforeStart(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	job := newTestJob(t, clk, Options{Every: Every{Seconds: 10}}, func(context.Context) {})

	job.Cancel()
	select {
	case <-job.Done():
	default:
		t.Fatal("Done() should be closed after cancelling an idle job")
	}
	if job.Phase() != PhaseStopped {
		t.Errorf("Phase = %v, want stopped", job.Phase())
	}
}

func TestJobStartTwiceIsNoop(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	var calls atomic.Int32
	job := newTestJob(t, clk, Options{Every: Every{Seconds: 10}, RunFirst: true},
		func(context.Context) { calls.Add(1) })

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	waitFor(t, "first firing", func() bool { return calls.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestJobOverlapSkipIfRunning(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	release := make(chan struct{})

	job := newTestJob(t, clk, Options{Every: Every{Seconds: 30}, RunFirst: true, Overlap: OverlapSkipIfRunning},
		func(context.Context) { <-release })
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "first firing running", func() bool { return job.Info().Running == 1 })
	waitFor(t, "timer armed", clk.HasWaiters)
	clk.Step(30 * time.Second)
	waitFor(t, "tick skipped", func() bool { return job.Info().Skipped == 1 })

	close(release)
	waitFor(t, "firing finished", func() bool { return job.Info().Running == 0 })

	if got := job.Info().Fires; got != 1 {
		t.Errorf("Fires = %d, want 1", got)
	}
}

func TestJobOverlapAllow(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	release := make(chan struct{})

	job := newTestJob(t, clk, Options{Every: Every{Seconds: 30}, RunFirst: true, Overlap: OverlapAllow},
		func(context.Context) { <-release })
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "first firing running", func() bool { return job.Info().Running == 1 })
	waitFor(t, "timer armed", clk.HasWaiters)
	clk.Step(30 * time.Second)
	waitFor(t, "overlapping firing", func() bool { return job.Info().Running == 2 })

	close(release)
	waitFor(t, "firings finished", func() bool { return job.Info().Running == 0 })

	info := job.Info()
	if info.Fires != 2 || info.Skipped != 0 {
		t.Errorf("Fires = %d, Skipped = %d, want 2 and 0", info.Fires, info.Skipped)
	}
}

func TestJobRecoversFromPanics(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	job := newTestJob(t, clk, Options{Every: Every{Seconds: 30}, RunFirst: true},
		func(context.Context) { panic("boom") })
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "first panic", func() bool { return job.Info().Panics == 1 })
	waitFor(t, "timer armed", clk.HasWaiters)
	clk.Step(30 * time.Second)
	waitFor(t, "second panic", func() bool { return job.Info().Panics == 2 })

	if job.Phase() != PhaseRecurring {
		t.Errorf("Phase = %v, want recurring after panics", job.Phase())
	}
}

func TestJobCancelDoesNotInterruptFiring(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	release := make(chan struct{})
	result := make(chan error, 1)

	job := newTestJob(t, clk, Options{Every: Every{Seconds: 30}, RunFirst: true},
		func(ctx context.Context) {
			<-release
			result <- ctx.Err()
		})
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "firing running", func() bool { return job.Info().Running == 1 })

	job.Cancel()
	<-job.Done()
	close(release)

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("firing context error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight firing never completed")
	}
}

func TestDelay(t *testing.T) {
	t.Run("fires once after delay", func(t *testing.T) {
		clk := clocktesting.NewFakeClock(epoch)
		var calls atomic.Int32
		done := make(chan bool, 1)

		go func() {
			done <- Delay(context.Background(), clk, 4*time.Hour, func() { calls.Add(1) })
		}()

		waitFor(t, "timer armed", clk.HasWaiters)
		clk.Step(4 * time.Hour)

		if ok := <-done; !ok {
			t.Fatal("Delay() = false, want true")
		}
		waitFor(t, "action", func() bool { return calls.Load() == 1 })
	})

	t.Run("cancelled before firing", func(t *testing.T) {
		clk := clocktesting.NewFakeClock(epoch)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls atomic.Int32
		if Delay(ctx, clk, time.Hour, func() { calls.Add(1) }) {
			t.Fatal("Delay() = true on cancelled context")
		}
		time.Sleep(20 * time.Millisecond)
		if calls.Load() != 0 {
			t.Errorf("action called %d times, want 0", calls.Load())
		}
	})
}

func TestParseOverlapPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OverlapPolicy
		wantErr bool
	}{
		{"", OverlapAllow, false},
		{"allow", OverlapAllow, false},
		{"SKIP", OverlapSkipIfRunning, false},
		{"skip-if-running", OverlapSkipIfRunning, false},
		{"queue", OverlapAllow, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOverlapPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOverlapPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOverlapPolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
