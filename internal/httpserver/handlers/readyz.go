package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready    bool       `json:"ready"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
}

// Readyz is 200 once the simulation runs and 503 while it waits for its
// aligned start.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Board != nil && d.Board.Running() {
			writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
			return
		}

		resp := readyzResponse{}
		if d.StartsAt != nil {
			if at := d.StartsAt(); !at.IsZero() {
				resp.StartsAt = &at
			}
		}
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}
