// Package envconfig loads the authd and authctl settings from environment
// variables. No other package reads the environment.
package envconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/debtflow/authcore"
	"github.com/rs/zerolog"
)

// Settings is everything the binaries need at startup.
type Settings struct {
	// Env is "development" or "production". Production marks cookies Secure.
	Env  string
	Port int

	LogLevel  string
	LogFormat string // "json" or "console"

	RedisURL    string
	DatabaseURL string
	UserTable   string
	TrustProxy  bool

	Auth authcore.Config
}

// Production reports whether Env is production.
func (s Settings) Production() bool {
	return strings.EqualFold(s.Env, "production")
}

// Load reads the environment over authcore.DefaultConfig. Malformed values
// are errors rather than silent defaults; the resulting authcore.Config is
// not validated here.
func Load() (Settings, error) {
	var errs []error
	cfg := authcore.DefaultConfig()

	s := Settings{
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		UserTable:   getEnv("USER_TABLE", "User"),
	}
	s.Port = getEnvInt("PORT", 3000, &errs)
	s.TrustProxy = getEnvBool("TRUST_PROXY", false, &errs)

	cfg.JWT.Access.PrivateKey = []byte(getEnv("JWT_ACCESS_SECRET", ""))
	cfg.JWT.Refresh.PrivateKey = []byte(getEnv("JWT_REFRESH_SECRET", ""))
	cfg.JWT.Access.TTL = getEnvDuration("JWT_ACCESS_EXPIRES_IN", cfg.JWT.Access.TTL, &errs)
	if days := getEnvInt("JWT_REFRESH_EXPIRES_IN_DAYS", 0, &errs); days > 0 {
		cfg.JWT.Refresh.TTL = time.Duration(days) * 24 * time.Hour
	}
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", "")
	cfg.JWT.Audience = getEnv("JWT_AUDIENCE", "")

	cfg.Session.TTL = getEnvDuration("SESSION_TTL", cfg.Session.TTL, &errs)
	cfg.Session.AtomicReuse = getEnvBool("SESSION_ATOMIC_REUSE", cfg.Session.AtomicReuse, &errs)

	cfg.Login.MaxAttempts = getEnvInt("LOGIN_MAX_ATTEMPTS", cfg.Login.MaxAttempts, &errs)
	cfg.Login.Lockout = getEnvDuration("LOGIN_LOCKOUT", cfg.Login.Lockout, &errs)
	cfg.Login.Window = getEnvDuration("LOGIN_WINDOW", cfg.Login.Window, &errs)

	cfg.Store.OperationTimeout = getEnvDuration("STORE_TIMEOUT", cfg.Store.OperationTimeout, &errs)
	cfg.Audit.Enabled = getEnvBool("AUDIT_ENABLED", cfg.Audit.Enabled, &errs)
	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", true, &errs)
	cfg.Metrics.EnableLatencyHistograms = getEnvBool("METRICS_LATENCY", cfg.Metrics.Enabled, &errs)

	s.Auth = cfg
	if err := errors.Join(errs...); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func NewLogger(s Settings, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(s.LogFormat, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int, errs *[]error) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool, errs *[]error) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	d, err := ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return d
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day "d"
// suffix ("7d"), the format the JWT expiry settings have always used.
func ParseDuration(val string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(val, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(val)
}
