package scheduler

import (
	"context"
	"errors"
	"time"

	"k8s.io/utils/clock"

	"github.com/MrSnakeDoc/ctfboard/internal/logger"
)

// DefaultKeepRounds is how many mirrored rounds survive a collection.
// Ten-minute rounds make this roughly one week.
const DefaultKeepRounds = 1008

// RoundPruner trims mirrored round history.
type RoundPruner interface {
	PruneRounds(ctx context.Context, keep int) (int, error)
}

// MirrorCollector periodically removes expired and surplus rounds from the
// Redis mirror.
type MirrorCollector struct {
	pruner RoundPruner
	logger logger.Logger
	keep   int
	job    *Job
}

// NewMirrorCollector creates a collector that runs every interval, once
// right away and then on the interval boundary.
func NewMirrorCollector(
	pruner RoundPruner,
	log logger.Logger,
	interval time.Duration,
	keep int,
	clk clock.Clock,
) (*MirrorCollector, error) {
	if pruner == nil {
		return nil, errors.New("mirror collector: pruner required")
	}
	if keep <= 0 {
		keep = DefaultKeepRounds
	}

	gc := &MirrorCollector{
		pruner: pruner,
		logger: log,
		keep:   keep,
	}
	job, err := NewJob("mirror-gc", Options{
		Every:    EveryDuration(interval),
		RunFirst: true,
		Overlap:  OverlapSkipIfRunning,
		Clock:    clk,
		Logger:   log,
	}, func(ctx context.Context) {
		if _, err := gc.Collect(ctx); err != nil {
			gc.logger.Error("mirror garbage collection failed", logger.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	gc.job = job
	return gc, nil
}

// Start begins the periodic collection.
func (gc *MirrorCollector) Start(ctx context.Context) error {
	return gc.job.Start(ctx)
}

// Stop stops the collector. Safe to call more than once.
func (gc *MirrorCollector) Stop() {
	gc.job.Cancel()
}

// Info returns the underlying job state.
func (gc *MirrorCollector) Info() JobInfo { return gc.job.Info() }

// Collect runs one collection pass.
func (gc *MirrorCollector) Collect(ctx context.Context) (int, error) {
	gc.logger.Debug("running mirror garbage collection", logger.Int("keep", gc.keep))

	removed, err := gc.pruner.PruneRounds(ctx, gc.keep)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		gc.logger.Info("mirror garbage collection completed",
			logger.Int("rounds_deleted", removed))
	} else {
		gc.logger.Debug("no mirrored rounds to collect")
	}
	return removed, nil
}
