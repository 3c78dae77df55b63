package domain

import "time"

// Availability values recorded per service in a round.
const (
	Up   = "true"
	Down = "false"
)

// Round maps a service name to its synthetic availability ("true"/"false")
// for one measurement cycle.
type Round map[string]string

// Clone returns a copy that can be handed out without sharing storage.
func (r Round) Clone() Round {
	out := make(Round, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RoundRecord is one entry of the availability matrix.
type RoundRecord struct {
	Number      int       `json:"round"`
	GeneratedAt time.Time `json:"generated_at"`
	Services    Round     `json:"services"`
}

// Standing is one row of the ordered scoreboard.
type Standing struct {
	Rank  int    `json:"rank"`
	Team  string `json:"team"`
	Score int    `json:"score"`
}
