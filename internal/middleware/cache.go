package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/movie-ticketing/internal/config"
)

// cachedResponse is what a cache entry stores.
type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// captureWriter forwards the response and keeps up to limit bytes of it.
// A non-positive limit keeps everything.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (w *captureWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
    keep := b
    if w.limit > 0 {
        room := w.limit - int64(w.buf.Len())
        if room < 0 {
            room = 0
        }
        if int64(len(keep)) > room {
            keep = keep[:room]
        }
    }
    w.buf.Write(keep)
    w.size += int64(len(b))
    return w.ResponseWriter.Write(b)
}

// generationKey holds a counter bumped by every successful write.  It is
// part of every cache key, so a booking invalidates all cached reads.
func generationKey(cfg config.CacheConfig) string { return cfg.Prefix + ":gen" }

// cacheKeyFrom hashes the request path, plus the normalised query unless
// the strategy is "route".
func cacheKeyFrom(cfg config.CacheConfig, gen int64, c echo.Context) string {
    u := c.Request().URL
    h := sha256.New()
    io.WriteString(h, u.Path)
    if !strings.EqualFold(cfg.KeyStrategy, "route") {
        io.WriteString(h, "?"+u.Query().Encode())
    }
    return fmt.Sprintf("%s:%d:%x", cfg.Prefix, gen, h.Sum(nil)[:16])
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    return json.Marshal(cachedResponse{Status: status, Header: header, Body: body})
}

func decodePayload(bs []byte) (cachedResponse, bool) {
    var r cachedResponse
    if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
        return cachedResponse{}, false
    }
    return r, true
}

// replay writes a cached response to the client.
func replay(c echo.Context, r cachedResponse) {
    out := c.Response().Header()
    for k, vals := range r.Header {
        if strings.EqualFold(k, echo.HeaderContentLength) {
            continue
        }
        for _, v := range vals {
            out.Add(k, v)
        }
    }
    out.Set("X-Cache", "HIT")
    c.Response().WriteHeader(r.Status)
    if len(r.Body) > 0 {
        _, _ = c.Response().Write(r.Body)
    }
}

// NewRedisCache caches 200 responses of the configured read methods and
// drops them all whenever any other request succeeds.  With a nil client
// it is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Second
    }
    maxBody := int64(cfg.MaxBodyBytes)
    genKey := generationKey(cfg)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                err := next(c)
                if err == nil && c.Response().Status < http.StatusBadRequest {
                    // Detached so a client hanging up cannot skip invalidation.
                    if ierr := rdb.Incr(context.Background(), genKey).Err(); ierr != nil {
                        log.WithError(ierr).Warn("cache invalidation failed")
                    }
                }
                return err
            }

            ctx := c.Request().Context()
            gen, err := rdb.Get(ctx, genKey).Int64()
            if err != nil && !errors.Is(err, redis.Nil) {
                log.WithError(err).Debug("cache bypassed")
                return next(c)
            }
            key := cacheKeyFrom(cfg, gen, c)
            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if r, ok := decodePayload(bs); ok {
                    replay(c, r)
                    return nil
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            if err := rdb.Set(context.Background(), key, payload, ttl).Err(); err != nil {
                log.WithError(err).Debug("cache store failed")
            }
            return nil
        }
    }
}
