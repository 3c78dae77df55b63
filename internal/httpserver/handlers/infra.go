package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/deps"
)

// maxMirrorLag is how many rounds the mirror may trail the simulation
// before it is reported as lagging. One round can be in flight.
const maxMirrorLag = 1

type componentStatus struct {
	OK            bool   `json:"ok"`
	Rounds        *int   `json:"rounds,omitempty"`
	LatestRound   *int   `json:"latest_round,omitempty"`
	Lag           *int   `json:"lag,omitempty"`
	LastUpdate    string `json:"last_update,omitempty"`
	ScoresUpdated string `json:"scores_updated,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Error         string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the simulation and mirror health.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rounds := d.Board.RoundCount()
		lastUpdate := "never"
		if t := d.Board.LastUpdate(); !t.IsZero() {
			lastUpdate = t.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"simulation": {
				OK:         d.Board.Running(),
				Rounds:     &rounds,
				LastUpdate: lastUpdate,
			},
			"redis": checkMirror(r.Context(), d, rounds),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if sim, ok := components["simulation"]; ok && !sim.OK {
		return "waiting"
	}
	if redis, ok := components["redis"]; ok && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "live"
}

func checkMirror(ctx context.Context, d deps.Deps, rounds int) componentStatus {
	if d.Mirror == nil {
		return componentStatus{OK: false, Mode: "disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Mirror.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: "degraded", Error: err.Error()}
	}

	latest, err := d.Mirror.GetLatestRounds(ctx, 1)
	if err != nil {
		return componentStatus{OK: false, Mode: "degraded", Error: err.Error()}
	}
	newest := 0
	if len(latest) > 0 {
		newest = latest[0].Number
	}
	lag := max(rounds-newest, 0)

	status := componentStatus{
		OK:          true,
		Mode:        "mirroring",
		LatestRound: &newest,
		Lag:         &lag,
	}
	if at, err := d.Mirror.ScoresUpdatedAt(ctx); err != nil {
		status.Error = err.Error()
	} else if !at.IsZero() {
		status.ScoresUpdated = at.Format("2006-01-02 15:04:05")
	}
	if lag > maxMirrorLag {
		status.OK = false
		status.Mode = "lagging"
	}
	return status
}
