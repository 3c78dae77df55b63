package simulation

import (
	"math/rand/v2"
	"sync"
)

// Roller draws uniform integers in the closed range [lo, hi].
type Roller interface {
	Between(lo, hi int) int
}

// NewRoller returns the default Roller. A zero seed draws from the
// process-wide generator; any other seed gives a reproducible sequence.
func NewRoller(seed uint64) Roller {
	if seed == 0 {
		return globalRoller{}
	}
	return &seededRoller{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type globalRoller struct{}

func (globalRoller) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo+1)
}

type seededRoller struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *seededRoller) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.r.IntN(hi-lo+1)
}
