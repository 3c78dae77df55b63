package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/MrSnakeDoc/ctfboard/internal/logger"
)

// ErrJobStopped is returned when starting a job that was already cancelled.
var ErrJobStopped = errors.New("job already stopped")

// Phase is the lifecycle state of a Job.
type Phase int32

const (
	PhaseIdle      Phase = iota // created, not started
	PhaseWaiting                // sleeping through the initial delay
	PhaseRecurring              // running the recurring schedule
	PhaseStopped                // cancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWaiting:
		return "waiting"
	case PhaseRecurring:
		return "recurring"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// OverlapPolicy decides what happens when a tick arrives while the previous
// firing of the same job is still running.
type OverlapPolicy int

const (
	// OverlapAllow spawns every tick, so firings may run concurrently.
	OverlapAllow OverlapPolicy = iota
	// OverlapSkipIfRunning drops the tick and counts it as skipped.
	OverlapSkipIfRunning
)

func (p OverlapPolicy) String() string {
	if p == OverlapSkipIfRunning {
		return "skip"
	}
	return "allow"
}

// ParseOverlapPolicy accepts "allow" or "skip" (case-insensitive).
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return OverlapAllow, nil
	case "skip", "skip-if-running":
		return OverlapSkipIfRunning, nil
	default:
		return OverlapAllow, fmt.Errorf("unknown overlap policy %q", s)
	}
}

// Action is the work a Job performs on each tick. The context it receives is
// detached from the job's cancellation: stopping a job never interrupts a
// firing that already started.
type Action func(ctx context.Context)

// Options configures a Job.
type Options struct {
	Every    Every
	RunFirst bool
	Delay    time.Duration // initial one-shot delay before the recurring phase
	Overlap  OverlapPolicy
	Clock    clock.Clock   // defaults to the real clock
	Logger   logger.Logger // defaults to a no-op logger
}

// JobInfo is a point-in-time view of a Job.
type JobInfo struct {
	Name     string        `json:"name"`
	Phase    string        `json:"phase"`
	Interval time.Duration `json:"interval"`
	Delay    time.Duration `json:"delay"`
	RunFirst bool          `json:"run_first"`
	Overlap  string        `json:"overlap"`
	Fires    uint64        `json:"fires"`
	Skipped  uint64        `json:"skipped"`
	Panics   uint64        `json:"panics"`
	Running  int64         `json:"running"`
	LastFire time.Time     `json:"last_fire,omitempty"`
}

// Job composes an optional initial delay with a drift-corrected recurring
// schedule. Phases move Idle -> Waiting -> Recurring -> Stopped; Waiting is
// skipped when there is no delay.
type Job struct {
	name   string
	opts   Options
	action Action
	clk    clock.Clock
	log    logger.Logger

	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc
	done   chan struct{}

	running  atomic.Int64
	fires    atomic.Uint64
	skipped  atomic.Uint64
	panics   atomic.Uint64
	lastFire atomic.Int64 // unix nanos, 0 = never
}

// NewJob validates opts and returns an idle job. A zero interval is a
// configuration error and no goroutine is ever started for it.
func NewJob(name string, opts Options, action Action) (*Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("job name required")
	}
	if action == nil {
		return nil, fmt.Errorf("job %s: action required", name)
	}
	if err := opts.Every.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: %w", name, err)
	}
	if opts.Delay < 0 {
		return nil, fmt.Errorf("job %s: negative delay %v", name, opts.Delay)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Job{
		name:   name,
		opts:   opts,
		action: action,
		clk:    clk,
		log:    log,
		done:   make(chan struct{}),
	}, nil
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// Start spawns the job loop. Starting a running job is a no-op; starting a
// cancelled job returns ErrJobStopped.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.phase {
	case PhaseIdle:
	case PhaseStopped:
		return fmt.Errorf("job %s: %w", j.name, ErrJobStopped)
	default:
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	if j.opts.Delay > 0 {
		j.phase = PhaseWaiting
	} else {
		j.phase = PhaseRecurring
	}

	go j.run(ctx)
	return nil
}

// Cancel stops the loop at its next suspension point. It is safe to call
// any number of times, before or after Start.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.phase {
	case PhaseIdle:
		j.phase = PhaseStopped
		close(j.done)
	case PhaseStopped:
	default:
		j.cancel()
	}
}

// Done is closed once the job loop has exited.
func (j *Job) Done() <-chan struct{} { return j.done }

// Phase returns the current lifecycle phase.
func (j *Job) Phase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

// Info returns counters and scheduling parameters.
func (j *Job) Info() JobInfo {
	info := JobInfo{
		Name:     j.name,
		Phase:    j.Phase().String(),
		Interval: j.opts.Every.Interval(),
		Delay:    j.opts.Delay,
		RunFirst: j.opts.RunFirst,
		Overlap:  j.opts.Overlap.String(),
		Fires:    j.fires.Load(),
		Skipped:  j.skipped.Load(),
		Panics:   j.panics.Load(),
		Running:  j.running.Load(),
	}
	if ns := j.lastFire.Load(); ns != 0 {
		info.LastFire = time.Unix(0, ns).UTC()
	}
	return info
}

func (j *Job) setPhase(p Phase) {
	j.mu.Lock()
	j.phase = p
	j.mu.Unlock()
}

func (j *Job) run(ctx context.Context) {
	defer close(j.done)
	defer j.setPhase(PhaseStopped)

	if j.opts.Delay > 0 {
		j.log.Debug("job waiting before first schedule",
			logger.String("job", j.name),
			logger.Duration("delay", j.opts.Delay))
		if !sleep(ctx, j.clk, j.opts.Delay) {
			j.log.Debug("job cancelled while waiting", logger.String("job", j.name))
			return
		}
		j.setPhase(PhaseRecurring)
	}

	fireCtx := context.WithoutCancel(ctx)
	err := repeatEvery(ctx, j.clk, j.opts.Every, j.opts.RunFirst,
		func() { j.fire(fireCtx) },
		func(wait time.Duration) {
			j.log.Debug("adjusting for time drift",
				logger.String("job", j.name),
				logger.Duration("sleep", wait))
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		j.log.Warn("job loop exited", logger.String("job", j.name), logger.Error(err))
		return
	}
	j.log.Debug("job loop stopped", logger.String("job", j.name))
}

func (j *Job) fire(ctx context.Context) {
	if j.opts.Overlap == OverlapSkipIfRunning {
		if !j.running.CompareAndSwap(0, 1) {
			j.skipped.Add(1)
			j.log.Warn("previous firing still running, skipping tick",
				logger.String("job", j.name))
			return
		}
		defer j.running.Store(0)
	} else {
		j.running.Add(1)
		defer j.running.Add(-1)
	}

	defer func() {
		if r := recover(); r != nil {
			j.panics.Add(1)
			j.log.Error("job firing panicked",
				logger.String("job", j.name),
				logger.Any("panic", r))
		}
	}()

	j.fires.Add(1)
	j.lastFire.Store(j.clk.Now().UnixNano())
	j.action(ctx)
}
