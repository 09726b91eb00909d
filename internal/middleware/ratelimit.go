package middleware

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/movie-ticketing/internal/config"
    "github.com/iliyamo/movie-ticketing/internal/handler"
)

// bucketScript refills continuously and takes one token.  Fractional
// tokens are kept so slow clients are not rounded down to zero.
//
// KEYS[1] bucket; ARGV now_ms, burst, every_ms, ttl_ms.
// Returns {allowed, whole tokens left, wait_ms}.
var bucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local every = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 't'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 's'))
if tokens == nil or stamp == nil then
  tokens = burst
  stamp = now
end
if now > stamp then
  tokens = math.min(burst, tokens + (now - stamp) / every)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  wait = math.ceil((1 - tokens) * every)
end

redis.call('HSET', KEYS[1], 't', tostring(tokens), 's', now)
redis.call('PEXPIRE', KEYS[1], ttl)
return { allowed, math.floor(tokens), wait }
`)

// NewTokenBucket limits how fast one client may create bookings.  With a
// nil client or a Redis failure every request goes through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Burst, cfg.Every.Milliseconds(), cfg.TTL.Milliseconds()).Int64Slice()
            if err != nil || len(res) != 3 {
                log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if res[0] == 1 {
                return next(c)
            }

            secs := retryAfterSeconds(res[2])
            h.Set("Retry-After", strconv.FormatInt(secs, 10))
            log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Info("booking rate limit exceeded")
            return c.JSON(http.StatusTooManyRequests, handler.ErrorResponse{
                Error:   "too_many_requests",
                Message: "too many booking attempts, retry in " + strconv.FormatInt(secs, 10) + "s",
            })
        }
    }
}

// retryAfterSeconds rounds a wait up to whole seconds, at least one.
func retryAfterSeconds(waitMs int64) int64 {
    secs := (waitMs + 999) / 1000
    if secs < 1 {
        secs = 1
    }
    return secs
}

// buildRateKey names the bucket for the request's client, scoped to the
// showtime being booked unless the strategy is per client only.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    key := cfg.Prefix + ":book:" + ip
    if cfg.KeyStrategy != config.RateKeyIP {
        if id := c.Param("id"); id != "" {
            key += ":showtime:" + id
        }
    }
    return key
}
