package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ctfboard/internal/scheduler"
)

// maxRounds caps ?last= so a single request cannot dump an unbounded history.
const maxRounds = 1000

type scoresResponse struct {
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	Standings []domain.Standing `json:"standings"`
}

// Scores returns the standings, highest score first.
func Scores(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := scoresResponse{Standings: d.Board.Standings()}
		if t := d.Board.LastUpdate(); !t.IsZero() {
			resp.UpdatedAt = &t
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type availabilityResponse struct {
	Total  int                  `json:"total"`
	Rounds []domain.RoundRecord `json:"rounds"`
}

// Availability returns recorded rounds in order; ?last=N keeps the N most
// recent.
func Availability(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		last := maxRounds
		if v := r.URL.Query().Get("last"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "last must be a positive integer")
				return
			}
			last = min(n, maxRounds)
		}

		writeJSON(w, http.StatusOK, availabilityResponse{
			Total:  d.Board.RoundCount(),
			Rounds: d.Board.LatestRounds(last),
		})
	}
}

// Round returns a single round by number.
func Round(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid round number")
			return
		}
		rec, ok := d.Board.Round(n)
		if !ok {
			writeError(w, http.StatusNotFound, "round not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type servicesResponse struct {
	Services []domain.ServiceStatus `json:"services"`
}

// Services returns every catalog service with its state.
func Services(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, servicesResponse{Services: d.Board.Services()})
	}
}

type jobsResponse struct {
	Running bool                `json:"running"`
	Jobs    []scheduler.JobInfo `json:"jobs"`
}

// Jobs returns scheduler state for each simulation job, followed by the
// mirror collector when the mirror is enabled.
func Jobs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := d.Board.Jobs()
		if d.MirrorGC != nil {
			jobs = append(jobs, d.MirrorGC.Info())
		}
		writeJSON(w, http.StatusOK, jobsResponse{
			Running: d.Board.Running(),
			Jobs:    jobs,
		})
	}
}
