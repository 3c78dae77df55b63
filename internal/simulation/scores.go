package simulation

import (
	"context"
)

// Score draw ranges.
const (
	maxGain        = 100
	maxBoostedGain = 110

	rollNone   = 0  // no gain this update
	rollDouble = 10 // doubled gain
)

// UpdateScores adds a random increment to every team.
//
// Each team rolls [0,10]: 0 gains nothing, 10 gains twice a draw from
// [0,max], anything else gains one draw. max is 110 for boosted teams and
// 100 otherwise, so the largest single increment is 220.
func (b *Scoreboard) UpdateScores(ctx context.Context) {
	b.log.Info("Updating scoreboard")

	b.mu.Lock()
	for _, team := range b.roster.Teams {
		b.scores[team] += b.gain(team)
	}
	now := b.clk.Now().UTC()
	b.updated = now
	snapshot := b.copyScoresLocked()
	b.mu.Unlock()

	b.publishScores(ctx, snapshot, now)
}

// gain rolls one team's increment. Callers hold mu.
func (b *Scoreboard) gain(team string) int {
	upper := maxGain
	if b.roster.IsBoosted(team) {
		upper = maxBoostedGain
	}

	switch b.rng.Between(0, 10) {
	case rollNone:
		return 0
	case rollDouble:
		return 2 * b.rng.Between(0, upper)
	default:
		return b.rng.Between(0, upper)
	}
}

func (b *Scoreboard) copyScoresLocked() map[string]int {
	out := make(map[string]int, len(b.scores))
	for team, score := range b.scores {
		out[team] = score
	}
	return out
}
