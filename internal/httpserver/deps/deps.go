package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
	"github.com/MrSnakeDoc/ctfboard/internal/logger"
	"github.com/MrSnakeDoc/ctfboard/internal/scheduler"
)

// Board is the read side of the simulation exposed over HTTP.
type Board interface {
	Standings() []domain.Standing
	LatestRounds(n int) []domain.RoundRecord
	Round(number int) (domain.RoundRecord, bool)
	RoundCount() int
	Services() []domain.ServiceStatus
	Jobs() []scheduler.JobInfo
	Running() bool
	LastUpdate() time.Time
}

// MirrorReader is the read side of the optional Redis mirror.
type MirrorReader interface {
	Ping(ctx context.Context) error
	GetLatestRounds(ctx context.Context, n int) ([]domain.RoundRecord, error)
	ScoresUpdatedAt(ctx context.Context) (time.Time, error)
}

// JobReporter exposes the state of a background job.
type JobReporter interface {
	Info() scheduler.JobInfo
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	Board          Board            // simulation state
	Mirror         MirrorReader     // Redis mirror, nil when disabled
	MirrorGC       JobReporter      // mirror collector, nil when disabled
	StartsAt       func() time.Time // scheduled simulation start, zero once started or when unaligned
	AllowedCIDRS   []string         // IPs allowed to access healthz/readyz endpoints
	TrustProxy     bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimitRPS   float64          // requests per second per client IP on /api, 0 disables
	RateLimitBurst int
}

// Now returns the current time using TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
