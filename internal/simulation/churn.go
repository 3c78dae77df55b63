package simulation

import (
	"context"

	"github.com/MrSnakeDoc/ctfboard/internal/logger"
)

// ChurnOutcome describes what a churn pass did.
type ChurnOutcome string

const (
	ChurnNone    ChurnOutcome = "none"    // roll landed in the no-change band
	ChurnAdded   ChurnOutcome = "added"   // a service was queued as pending
	ChurnRemoved ChurnOutcome = "removed" // an active service was deactivated
	ChurnSkipped ChurnOutcome = "skipped" // mutate branch taken but no candidate
)

// Bounds of the no-change band for the churn roll.
const (
	churnLow  = 10
	churnHigh = 89
)

// ChangeServices randomly grows or shrinks the active service set.
//
// The roll is drawn from [0, 100-|active|]. Rolls inside [10,89] change
// nothing. Below 10 removes a service and above 89 adds one, except that a
// single active service always triggers an add and a full catalog always
// triggers a remove. Added services wait in pending until the next round.
func (b *Scoreboard) ChangeServices(ctx context.Context) (ChurnOutcome, string) {
	b.log.Info("Updating services")

	b.mu.Lock()
	upper := 100 - len(b.active)
	if upper < 0 {
		upper = 0
	}
	change := b.rng.Between(0, upper)

	outcome, service := ChurnNone, ""
	if change < churnLow || change > churnHigh {
		switch {
		case len(b.active) <= 1:
			outcome, service = b.addRandomServiceLocked()
		case len(b.active) == len(b.roster.Services):
			outcome, service = b.removeRandomServiceLocked()
		case change < churnLow:
			outcome, service = b.removeRandomServiceLocked()
		default:
			outcome, service = b.addRandomServiceLocked()
		}
	}
	if outcome == ChurnAdded || outcome == ChurnRemoved {
		b.updated = b.clk.Now().UTC()
	}
	b.mu.Unlock()

	switch outcome {
	case ChurnAdded:
		b.log.Debug("Adding service", logger.String("service", service))
	case ChurnRemoved:
		b.log.Debug("Removing service", logger.String("service", service))
	case ChurnSkipped:
		b.log.Debug("no eligible service for churn", logger.Int("roll", change))
	}

	return outcome, service
}

// addRandomServiceLocked queues a uniformly chosen inactive service.
// Services that are active or already pending are not candidates.
func (b *Scoreboard) addRandomServiceLocked() (ChurnOutcome, string) {
	taken := make(map[string]bool, len(b.active)+len(b.pending))
	for _, s := range b.active {
		taken[s] = true
	}
	for _, s := range b.pending {
		taken[s] = true
	}

	candidates := make([]string, 0, len(b.roster.Services))
	for _, s := range b.roster.Services {
		if !taken[s] {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return ChurnSkipped, ""
	}

	service := candidates[b.rng.Between(0, len(candidates)-1)]
	b.pending = append(b.pending, service)
	return ChurnAdded, service
}

// removeRandomServiceLocked deactivates a uniformly chosen active service,
// as long as more than one is active.
func (b *Scoreboard) removeRandomServiceLocked() (ChurnOutcome, string) {
	if len(b.active) <= 1 {
		return ChurnSkipped, ""
	}

	i := b.rng.Between(0, len(b.active)-1)
	service := b.active[i]
	b.active = append(b.active[:i], b.active[i+1:]...)
	return ChurnRemoved, service
}
