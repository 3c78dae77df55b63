package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrSnakeDoc/ctfboard/internal/logger"
	"github.com/MrSnakeDoc/ctfboard/internal/scheduler"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "CTFBOARD_"

type Config struct {
	ListenPort      string        `env:"LISTEN_PORT" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"` // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `env:"PRETTY_LOG" envDefault:"true"` // true => zap dev (color), false => zap prod (JSON)
	LogFile   string `env:"LOG_FILE"`                     // optional, written alongside stderr

	// Simulation
	AlignStart    bool          `env:"ALIGN_START" envDefault:"true"` // wait for the next UTC top of the hour
	RosterFile    string        `env:"ROSTER_FILE"`                   // optional yaml roster, empty = built-in
	Overlap       string        `env:"OVERLAP" envDefault:"allow"`    // "allow" | "skip"
	Seed          uint64        `env:"SEED" envDefault:"0"`           // 0 = nondeterministic
	RoundInterval time.Duration `env:"ROUND_INTERVAL" envDefault:"10m"`
	ScoreInterval time.Duration `env:"SCORE_INTERVAL" envDefault:"5m"`
	ChurnInterval time.Duration `env:"CHURN_INTERVAL" envDefault:"1h"`
	ChurnDelay    time.Duration `env:"CHURN_DELAY" envDefault:"4h"`

	// Redis mirror, disabled when RedisAddr is empty
	RedisAddr           string        `env:"REDIS_ADDR"`
	RedisUser           string        `env:"REDIS_USERNAME"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // total time to retry connecting
	RedisRetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`   // initial wait, grows exponentially
	RedisMaxWait        time.Duration `env:"REDIS_MAX_WAIT" envDefault:"10s"`        // max wait between retries
	RedisPingTimeout    time.Duration `env:"REDIS_PING_TIMEOUT" envDefault:"5s"`     // timeout for each ping attempt
	RedisWarnThreshold  int           `env:"REDIS_WARN_THRESHOLD" envDefault:"3"`    // warn after this many attempts
	MirrorGCInterval    time.Duration `env:"MIRROR_GC_INTERVAL" envDefault:"1h"`     // how often mirrored rounds are pruned
	MirrorKeepRounds    int           `env:"MIRROR_KEEP_ROUNDS" envDefault:"1008"`   // newest rounds kept in Redis

	// Access restrictions
	AllowedCIDRS   []string `env:"ALLOWED_CIDRS" envSeparator:","` // optional, e.g. "10.0.0.0/8, 1.2.3.4"
	TrustProxy     bool     `env:"TRUST_PROXY" envDefault:"false"` // true => trust X-Forwarded-For headers
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"20"` // per client IP on /api, 0 = disabled
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load reads the configuration from CTFBOARD_* environment variables and
// validates it.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom behaves like Load but reads from environment when it is not nil.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AllowedCIDRS = splitAndTrim(cfg.AllowedCIDRS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if !logger.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if _, err := scheduler.ParseOverlapPolicy(c.Overlap); err != nil {
		errs = append(errs, err)
	}
	for name, d := range map[string]time.Duration{
		"ROUND_INTERVAL": c.RoundInterval,
		"SCORE_INTERVAL": c.ScoreInterval,
		"CHURN_INTERVAL": c.ChurnInterval,
	} {
		if d < time.Second {
			errs = append(errs, fmt.Errorf("%s%s must be at least 1s, got %v", EnvPrefix, name, d))
		}
	}
	if c.ChurnDelay < 0 {
		errs = append(errs, fmt.Errorf("%sCHURN_DELAY must not be negative, got %v", EnvPrefix, c.ChurnDelay))
	}
	if c.MirrorEnabled() && c.MirrorGCInterval < time.Second {
		errs = append(errs, fmt.Errorf("%sMIRROR_GC_INTERVAL must be at least 1s, got %v", EnvPrefix, c.MirrorGCInterval))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sSHUTDOWN_TIMEOUT must be > 0, got %v", EnvPrefix, c.ShutdownTimeout))
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		errs = append(errs, fmt.Errorf("invalid rate limit %v/s burst %d", c.RateLimitRPS, c.RateLimitBurst))
	}
	for _, cidr := range c.AllowedCIDRS {
		if !validCIDR(cidr) {
			errs = append(errs, fmt.Errorf("invalid entry %q in %sALLOWED_CIDRS", cidr, EnvPrefix))
		}
	}

	return errors.Join(errs...)
}

// MirrorEnabled reports whether a Redis mirror is configured.
func (c *Config) MirrorEnabled() bool { return c.RedisAddr != "" }

// OverlapPolicy returns the parsed overlap setting. Call after Validate.
func (c *Config) OverlapPolicy() scheduler.OverlapPolicy {
	p, _ := scheduler.ParseOverlapPolicy(c.Overlap)
	return p
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

func validCIDR(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func splitAndTrim(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	parts := make([]string, 0, len(values))
	for _, part := range values {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}
