package config

import (
    "strings"
    "time"
)

// Rate limit key strategies.
const (
    RateKeyIP         = "ip"          // one bucket per client
    RateKeyIPShowtime = "ip_showtime" // one bucket per client and showtime
)

// RateLimitConfig configures the token bucket in front of booking
// creation.  A bucket holds up to Burst tokens and regains one every
// Every; each booking attempt takes one.
type RateLimitConfig struct {
    Enabled     bool          // RATE_LIMIT_ENABLED
    Burst       int           // RATE_LIMIT_BURST
    Every       time.Duration // RATE_LIMIT_REFILL_EVERY
    TTL         time.Duration // RATE_LIMIT_TTL
    KeyStrategy string        // RATE_LIMIT_KEY_STRATEGY
    Prefix      string        // RATE_LIMIT_PREFIX
    Debug       bool          // RATE_LIMIT_DEBUG: expose the bucket key
}

// LoadRateLimitConfig reads the limiter settings.  TTL is raised so an idle
// bucket is not evicted before it could have refilled.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:     envBool("RATE_LIMIT_ENABLED", true),
        Burst:       envInt("RATE_LIMIT_BURST", 5),
        Every:       envDur("RATE_LIMIT_REFILL_EVERY", 2*time.Second),
        TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy: strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", RateKeyIPShowtime)),
        Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:       envBool("RATE_LIMIT_DEBUG", false),
    }
    if cfg.Burst < 1 {
        cfg.Burst = 1
    }
    if cfg.Every <= 0 {
        cfg.Every = time.Second
    }
    if full := time.Duration(cfg.Burst) * cfg.Every; cfg.TTL < full {
        cfg.TTL = full
    }
    return cfg
}
