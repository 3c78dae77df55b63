package simulation

import (
	"context"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
	"github.com/MrSnakeDoc/ctfboard/internal/logger"
)

// availabilityThreshold is the lowest roll in [1,100] that counts as up.
const availabilityThreshold = 10

// GenerateRound records one availability round and returns its number.
//
// Every active service rolls for synthetic uptime. Pending services are
// then promoted, most recently queued first, and recorded as up.
func (b *Scoreboard) GenerateRound(ctx context.Context) int {
	b.log.Info("Updating availabilities")

	b.mu.Lock()
	round := make(domain.Round, len(b.active)+len(b.pending))
	for _, service := range b.active {
		if b.rng.Between(1, 100) >= availabilityThreshold {
			round[service] = domain.Up
		} else {
			round[service] = domain.Down
		}
	}

	var promoted []string
	for len(b.pending) > 0 {
		last := len(b.pending) - 1
		service := b.pending[last]
		b.pending = b.pending[:last]

		round[service] = domain.Up
		b.active = append(b.active, service)
		promoted = append(promoted, service)
	}

	now := b.clk.Now().UTC()
	rec := domain.RoundRecord{
		Number:      len(b.rounds) + 1,
		GeneratedAt: now,
		Services:    round,
	}
	b.rounds = append(b.rounds, rec)
	b.updated = now
	b.mu.Unlock()

	if len(promoted) > 0 {
		b.log.Debug("promoted pending services",
			logger.Int("round", rec.Number),
			logger.Strings("services", promoted))
	}
	b.log.Debug("round recorded",
		logger.Int("round", rec.Number),
		logger.Int("services", len(round)))

	out := rec
	out.Services = round.Clone()
	b.publishRound(ctx, out)

	return rec.Number
}
