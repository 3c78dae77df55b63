package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
	"github.com/MrSnakeDoc/ctfboard/internal/logger"
	"github.com/MrSnakeDoc/ctfboard/internal/scheduler"
)

// Job names, as reported by Jobs() and in logs.
const (
	JobRounds = "rounds"
	JobScores = "scores"
	JobChurn  = "churn"
)

// Timings holds the schedule of the three simulation jobs.
type Timings struct {
	RoundInterval time.Duration // availability round generation
	ScoreInterval time.Duration // score updates
	ChurnInterval time.Duration // service add/remove
	ChurnDelay    time.Duration // wait before churn starts recurring
}

// DefaultTimings returns the production schedule.
func DefaultTimings() Timings {
	return Timings{
		RoundInterval: 10 * time.Minute,
		ScoreInterval: 5 * time.Minute,
		ChurnInterval: time.Hour,
		ChurnDelay:    4 * time.Hour,
	}
}

// Publisher mirrors state changes somewhere outside the process.
// Failures are logged and never affect the simulation.
type Publisher interface {
	PublishRound(ctx context.Context, rec domain.RoundRecord) error
	PublishScores(ctx context.Context, scores map[string]int, updatedAt time.Time) error
}

// Options configures a Scoreboard. Zero values fall back to defaults.
type Options struct {
	Roster    domain.Roster
	Timings   Timings
	Overlap   scheduler.OverlapPolicy
	Roller    Roller
	Clock     clock.Clock
	Logger    logger.Logger
	Publisher Publisher
}

// Scoreboard owns the simulation state and the jobs that mutate it.
//
// All mutations and snapshot reads go through mu, so jobs firing
// concurrently (or overlapping firings of the same job) never interleave
// inside an update.
type Scoreboard struct {
	roster    domain.Roster
	timings   Timings
	overlap   scheduler.OverlapPolicy
	rng       Roller
	clk       clock.Clock
	log       logger.Logger
	publisher Publisher

	mu      sync.RWMutex
	pending []string // stack: last queued is promoted first
	active  []string
	rounds  []domain.RoundRecord
	scores  map[string]int
	updated time.Time

	jobsMu  sync.Mutex
	jobs    []*scheduler.Job
	running atomic.Bool
}

// New builds a Scoreboard with every team at zero and the roster's pending
// services queued for the first round.
func New(opts Options) (*Scoreboard, error) {
	roster := opts.Roster
	if len(roster.Services) == 0 {
		roster = domain.DefaultRoster()
	}
	if err := roster.Validate(); err != nil {
		return nil, err
	}

	timings := opts.Timings
	if timings == (Timings{}) {
		timings = DefaultTimings()
	}

	b := &Scoreboard{
		roster:    roster,
		timings:   timings,
		overlap:   opts.Overlap,
		rng:       opts.Roller,
		clk:       opts.Clock,
		log:       opts.Logger,
		publisher: opts.Publisher,
		pending:   append([]string(nil), roster.Pending...),
		scores:    make(map[string]int, len(roster.Teams)),
	}
	if b.rng == nil {
		b.rng = NewRoller(0)
	}
	if b.clk == nil {
		b.clk = clock.RealClock{}
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	for _, team := range roster.Teams {
		b.scores[team] = 0
	}

	return b, nil
}

// Roster returns the catalog and teams the board was built with.
func (b *Scoreboard) Roster() domain.Roster { return b.roster }

// Start spawns the round, score and churn jobs. Every job is validated
// before any is started, so a bad interval leaves nothing running. Calling
// Start on a running board, or with a ctx that is already done, is a no-op.
func (b *Scoreboard) Start(ctx context.Context) error {
	b.jobsMu.Lock()
	defer b.jobsMu.Unlock()

	if len(b.jobs) > 0 {
		return nil
	}
	if ctx.Err() != nil {
		b.log.Debug("simulation not started, context already done")
		return nil
	}

	specs := []struct {
		name     string
		interval time.Duration
		runFirst bool
		delay    time.Duration
		action   scheduler.Action
	}{
		{JobRounds, b.timings.RoundInterval, true, 0, func(ctx context.Context) { b.GenerateRound(ctx) }},
		{JobScores, b.timings.ScoreInterval, false, 0, b.UpdateScores},
		{JobChurn, b.timings.ChurnInterval, true, b.timings.ChurnDelay, func(ctx context.Context) { b.ChangeServices(ctx) }},
	}

	jobs := make([]*scheduler.Job, 0, len(specs))
	for _, s := range specs {
		job, err := scheduler.NewJob(s.name, scheduler.Options{
			Every:    scheduler.EveryDuration(s.interval),
			RunFirst: s.runFirst,
			Delay:    s.delay,
			Overlap:  b.overlap,
			Clock:    b.clk,
			Logger:   b.log,
		}, s.action)
		if err != nil {
			return fmt.Errorf("failed to configure simulation: %w", err)
		}
		jobs = append(jobs, job)
	}

	b.log.Info("Starting simulation",
		logger.Duration("round_interval", b.timings.RoundInterval),
		logger.Duration("score_interval", b.timings.ScoreInterval),
		logger.Duration("churn_interval", b.timings.ChurnInterval),
		logger.Duration("churn_delay", b.timings.ChurnDelay),
		logger.String("overlap", b.overlap.String()))

	for _, job := range jobs {
		if err := job.Start(ctx); err != nil {
			for _, started := range jobs {
				started.Cancel()
			}
			return fmt.Errorf("failed to start job %s: %w", job.Name(), err)
		}
	}

	b.jobs = jobs
	b.running.Store(true)
	return nil
}

// Stop cancels every job. Firings already in flight run to completion.
// Stop is safe on a board that was never started or already stopped.
func (b *Scoreboard) Stop() {
	b.jobsMu.Lock()
	defer b.jobsMu.Unlock()

	if len(b.jobs) == 0 {
		return
	}
	for _, job := range b.jobs {
		job.Cancel()
	}
	b.jobs = nil
	b.running.Store(false)
	b.log.Info("simulation stopped")
}

// Running reports whether the jobs are currently scheduled.
func (b *Scoreboard) Running() bool { return b.running.Load() }

// Jobs describes the scheduled jobs; empty when not running.
func (b *Scoreboard) Jobs() []scheduler.JobInfo {
	b.jobsMu.Lock()
	defer b.jobsMu.Unlock()

	infos := make([]scheduler.JobInfo, 0, len(b.jobs))
	for _, job := range b.jobs {
		infos = append(infos, job.Info())
	}
	return infos
}

func (b *Scoreboard) publishRound(ctx context.Context, rec domain.RoundRecord) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.PublishRound(ctx, rec); err != nil {
		b.log.Warn("failed to publish round",
			logger.Int("round", rec.Number),
			logger.Error(err))
	}
}

func (b *Scoreboard) publishScores(ctx context.Context, scores map[string]int, updatedAt time.Time) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.PublishScores(ctx, scores, updatedAt); err != nil {
		b.log.Warn("failed to publish scores", logger.Error(err))
	}
}
