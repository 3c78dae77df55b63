package simulation

import (
	"sort"
	"time"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
)

// Availabilities returns every recorded round in order. The result is a
// deep copy and can be kept by the caller.
func (b *Scoreboard) Availabilities() []domain.RoundRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return cloneRounds(b.rounds)
}

// LatestRounds returns at most n of the most recent rounds, oldest first.
// n <= 0 returns all of them.
func (b *Scoreboard) LatestRounds(n int) []domain.RoundRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rounds := b.rounds
	if n > 0 && n < len(rounds) {
		rounds = rounds[len(rounds)-n:]
	}
	return cloneRounds(rounds)
}

// Round returns a single round by number.
func (b *Scoreboard) Round(number int) (domain.RoundRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if number < 1 || number > len(b.rounds) {
		return domain.RoundRecord{}, false
	}
	rec := b.rounds[number-1]
	rec.Services = rec.Services.Clone()
	return rec, true
}

// RoundCount returns the number of recorded rounds.
func (b *Scoreboard) RoundCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.rounds)
}

// Scores returns a copy of the score table.
func (b *Scoreboard) Scores() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.copyScoresLocked()
}

// Standings returns the teams ordered by score, highest first. Ties keep
// roster order and share a rank.
func (b *Scoreboard) Standings() []domain.Standing {
	b.mu.RLock()
	rows := make([]domain.Standing, 0, len(b.roster.Teams))
	for _, team := range b.roster.Teams {
		rows = append(rows, domain.Standing{Team: team, Score: b.scores[team]})
	}
	b.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	for i := range rows {
		if i > 0 && rows[i].Score == rows[i-1].Score {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = i + 1
		}
	}
	return rows
}

// Services reports the state of every catalog service in catalog order.
func (b *Scoreboard) Services() []domain.ServiceStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state := make(map[string]domain.ServiceState, len(b.roster.Services))
	for _, s := range b.active {
		state[s] = domain.StateActive
	}
	for _, s := range b.pending {
		state[s] = domain.StatePending
	}

	out := make([]domain.ServiceStatus, 0, len(b.roster.Services))
	for _, name := range b.roster.Services {
		st, ok := state[name]
		if !ok {
			st = domain.StateInactive
		}
		status := domain.ServiceStatus{Name: name, State: st}
		for i := len(b.rounds) - 1; i >= 0; i-- {
			if v, ok := b.rounds[i].Services[name]; ok {
				status.LastAvailability = v
				break
			}
		}
		out = append(out, status)
	}
	return out
}

// Active returns the active services in activation order.
func (b *Scoreboard) Active() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]string(nil), b.active...)
}

// Pending returns the pending services in insertion order.
func (b *Scoreboard) Pending() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]string(nil), b.pending...)
}

// LastUpdate returns when state last changed, zero if never.
func (b *Scoreboard) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.updated
}

func cloneRounds(rounds []domain.RoundRecord) []domain.RoundRecord {
	out := make([]domain.RoundRecord, len(rounds))
	for i, rec := range rounds {
		rec.Services = rec.Services.Clone()
		out[i] = rec
	}
	return out
}
