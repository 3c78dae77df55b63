package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/MrSnakeDoc/ctfboard/internal/config"
	"github.com/MrSnakeDoc/ctfboard/internal/domain"
	"github.com/MrSnakeDoc/ctfboard/internal/httpserver"
	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ctfboard/internal/logger"
	"github.com/MrSnakeDoc/ctfboard/internal/redis"
	"github.com/MrSnakeDoc/ctfboard/internal/scheduler"
	"github.com/MrSnakeDoc/ctfboard/internal/simulation"
	"github.com/MrSnakeDoc/ctfboard/internal/sources/roster"
	redisstore "github.com/MrSnakeDoc/ctfboard/internal/store/redis"
	"github.com/MrSnakeDoc/ctfboard/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	clk         clock.Clock
	server      *httpserver.Server
	board       *simulation.Scoreboard
	redisClient *goredis.Client
	mirrorGC    *scheduler.MirrorCollector
	startsAt    atomic.Int64 // unix nanos of the pending aligned start, 0 = none
}

// New wires configuration, logging, the optional Redis mirror, the
// simulation engine and the HTTP server.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loggerClient, err := logger.NewWithOptions(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.PrettyLog,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	// Log config only in debug mode with redacted sensitive fields
	loggerClient.Debug("configuration loaded", logger.Any("config", cfg.Redacted()))

	return build(context.Background(), cfg, loggerClient, clock.RealClock{})
}

func build(ctx context.Context, cfg *config.Config, loggerClient logger.Logger, clk clock.Clock) (*App, error) {
	a := &App{cfg: cfg, logger: loggerClient, clk: clk}

	r := domain.DefaultRoster()
	if cfg.RosterFile != "" {
		loaded, err := roster.NewLoader(cfg.RosterFile).Load()
		if err != nil {
			return nil, err
		}
		r = loaded
		loggerClient.Info("roster loaded",
			logger.String("file", cfg.RosterFile),
			logger.Int("services", len(r.Services)),
			logger.Int("teams", len(r.Teams)))
	}

	var publisher simulation.Publisher
	var mirror *redisstore.Mirror
	if cfg.MirrorEnabled() {
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient.Named("redis"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
		mirror = redisstore.NewMirror(client)
		publisher = mirror

		a.mirrorGC, err = scheduler.NewMirrorCollector(mirror, loggerClient.Named("mirror-gc"),
			cfg.MirrorGCInterval, cfg.MirrorKeepRounds, clk)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to configure mirror collector: %w", err)
		}
	} else {
		loggerClient.Info("redis mirror not configured, state is kept in memory only")
	}

	board, err := simulation.New(simulation.Options{
		Roster: r,
		Timings: simulation.Timings{
			RoundInterval: cfg.RoundInterval,
			ScoreInterval: cfg.ScoreInterval,
			ChurnInterval: cfg.ChurnInterval,
			ChurnDelay:    cfg.ChurnDelay,
		},
		Overlap:   cfg.OverlapPolicy(),
		Roller:    simulation.NewRoller(cfg.Seed),
		Clock:     clk,
		Logger:    loggerClient.Named("simulation"),
		Publisher: publisher,
	})
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("failed to build simulation: %w", err)
	}
	a.board = board

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      clk.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        clk.Now,
		Board:          board,
		StartsAt:       a.StartsAt,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	if mirror != nil {
		d.Mirror = mirror
		d.MirrorGC = a.mirrorGC
	}
	a.server = httpserver.New(cfg, loggerClient, d)

	return a, nil
}

// StartsAt returns the scheduled aligned start, zero when none is pending.
func (a *App) StartsAt() time.Time {
	ns := a.startsAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting ctfboard v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.mirrorGC != nil {
		if err := a.mirrorGC.Start(gctx); err != nil {
			return fmt.Errorf("failed to start mirror collector: %w", err)
		}
		a.logger.Info("mirror collector started",
			logger.Duration("interval", a.cfg.MirrorGCInterval),
			logger.Int("keep", a.cfg.MirrorKeepRounds))
	}

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error { return a.startSimulation(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("⏳ Shutting down gracefully...")
		return a.shutdown()
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("✅ ctfboard stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

// startSimulation starts the engine right away or on the next UTC hour
// boundary. It returns once the engine runs or ctx ends.
func (a *App) startSimulation(ctx context.Context) error {
	now := a.clk.Now()
	wait := StartDelay(now, a.cfg.AlignStart)
	if wait > 0 {
		at := now.UTC().Add(wait).Truncate(time.Second)
		a.startsAt.Store(at.UnixNano())
		a.logger.Infof("Starting simulation in %s at %s",
			formatDelay(wait), at.Format("2006-01-02 15:04:05 UTC+00:00"))
	}

	started := make(chan error, 1)
	fired := scheduler.Delay(ctx, a.clk, wait, func() {
		if ctx.Err() != nil {
			started <- nil
			return
		}
		started <- a.board.Start(ctx)
	})
	if !fired {
		return nil
	}

	select {
	case err := <-started:
		a.startsAt.Store(0)
		if err != nil {
			return fmt.Errorf("failed to start simulation: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (a *App) shutdown() error {
	a.board.Stop()
	if a.mirrorGC != nil {
		a.mirrorGC.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.closeRedis()
	return nil
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warnf("failed to close redis: %v", err)
	} else {
		a.logger.Info("✅ Redis closed cleanly")
	}
}
