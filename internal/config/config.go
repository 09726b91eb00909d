package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
    DriverMySQL  = "mysql"
    DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env           string // APP_ENV (dev, test, prod)
    Port          string // APP_PORT
    StorageDriver string // STORAGE_DRIVER: mysql | memory

    DBUser        string // DB_USER
    DBPass        string // DB_PASS (empty allowed)
    DBHost        string // DB_HOST
    DBPort        string // DB_PORT
    DBName        string // DB_NAME
    DBMaxConns    int    // DB_MAX_CONNS
    DBAutoMigrate bool   // DB_AUTO_MIGRATE
    DBSeed        bool   // DB_SEED

    BookingMaxAttempts  int           // BOOKING_MAX_ATTEMPTS
    BookingRetryBackoff time.Duration // BOOKING_RETRY_BACKOFF
    RequestTimeout      time.Duration // REQUEST_TIMEOUT

    LogLevel  string // LOG_LEVEL
    LogFormat string // LOG_FORMAT: json | text

    RabbitURL      string // RABBITMQ_URL
    EventsEnabled  bool   // EVENTS_ENABLED
    BookingLogPath string // BOOKING_LOG_PATH
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production") }

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding the real environment.  Missing files are ignored.
func LoadDotEnv(files ...string) error {
    if len(files) == 0 {
        files = []string{".env"}
    }
    for _, f := range files {
        if _, err := os.Stat(f); err != nil {
            continue
        }
        if err := godotenv.Load(f); err != nil {
            return fmt.Errorf("load %s: %w", f, err)
        }
    }
    return nil
}

// Load reads configuration values from environment variables.  Database
// settings are required only for the mysql driver; every missing or
// malformed variable is reported in the returned error.
func Load() (Config, error) {
    r := &reader{}
    cfg := Config{
        Env:           envStr("APP_ENV", "dev"),
        Port:          envStr("APP_PORT", "8080"),
        StorageDriver: strings.ToLower(envStr("STORAGE_DRIVER", DriverMySQL)),

        DBPass:        os.Getenv("DB_PASS"),
        DBMaxConns:    r.int("DB_MAX_CONNS", 25),
        DBAutoMigrate: envBool("DB_AUTO_MIGRATE", true),
        DBSeed:        envBool("DB_SEED", false),

        BookingMaxAttempts:  r.int("BOOKING_MAX_ATTEMPTS", 3),
        BookingRetryBackoff: r.dur("BOOKING_RETRY_BACKOFF", 50*time.Millisecond),
        RequestTimeout:      r.dur("REQUEST_TIMEOUT", 10*time.Second),

        LogLevel:  envStr("LOG_LEVEL", "info"),
        LogFormat: strings.ToLower(envStr("LOG_FORMAT", "")),

        RabbitURL:      os.Getenv("RABBITMQ_URL"),
        EventsEnabled:  envBool("EVENTS_ENABLED", true),
        BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/booking.log"),
    }

    switch cfg.StorageDriver {
    case DriverMySQL:
        cfg.DBUser = r.must("DB_USER")
        cfg.DBHost = r.must("DB_HOST")
        cfg.DBPort = r.must("DB_PORT")
        cfg.DBName = r.must("DB_NAME")
    case DriverMemory:
    default:
        r.errs = append(r.errs, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver))
    }
    if cfg.BookingMaxAttempts < 1 {
        r.errs = append(r.errs, fmt.Errorf("BOOKING_MAX_ATTEMPTS must be >= 1, got %d", cfg.BookingMaxAttempts))
    }
    if cfg.LogFormat == "" {
        cfg.LogFormat = "text"
        if cfg.IsProd() {
            cfg.LogFormat = "json"
        }
    }
    return cfg, errors.Join(r.errs...)
}

// reader collects errors for required and typed variables.
type reader struct {
    errs []error
}

// must retrieves the value of a required environment variable.
func (r *reader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
    }
    return v
}

// int parses an optional integer, recording malformed values.
func (r *reader) int(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, v))
        return def
    }
    return n
}

// dur parses an optional duration, recording malformed values.
func (r *reader) dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil {
        r.errs = append(r.errs, fmt.Errorf("invalid duration for %s: %q", key, v))
        return def
    }
    return d
}
