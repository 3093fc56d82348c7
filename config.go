package authcore

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/debtflow/authcore/token"
)

// Config is the full Service configuration.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Login    LoginConfig
	Password PasswordConfig
	Store    StoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures both token profiles. Each profile has its own key.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	Access        KeyConfig
	Refresh       KeyConfig
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// KeyConfig is one signing profile.
type KeyConfig struct {
	TTL time.Duration
	// PrivateKey is the HS256 secret, or the Ed25519 private key (raw or PEM).
	PrivateKey []byte
	PublicKey  []byte
	KeyID      string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session window.
type SessionConfig struct {
	TTL         time.Duration
	AtomicReuse bool
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig is the lockout policy applied by the login flow.
type LoginConfig struct {
	MaxAttempts int
	Lockout     time.Duration
	Window      time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters for the default hasher.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

/*
====================================
STORE / AUDIT / METRICS
====================================
*/

// StoreConfig bounds every key-value store call.
type StoreConfig struct {
	// OperationTimeout is the per-call deadline. Zero disables it.
	OperationTimeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the production defaults without key material.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Access:        KeyConfig{TTL: 15 * time.Minute},
			Refresh:       KeyConfig{TTL: 7 * 24 * time.Hour},
		},
		Session: SessionConfig{
			TTL:         24 * time.Hour,
			AtomicReuse: false,
		},
		Login: LoginConfig{
			MaxAttempts: 3,
			Lockout:     15 * time.Minute,
			Window:      15 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:           19 * 1024,
			Time:             2,
			Parallelism:      1,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
		},
		Store: StoreConfig{
			OperationTimeout: 2 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Access.PrivateKey = cloneBytes(cfg.JWT.Access.PrivateKey)
	out.JWT.Access.PublicKey = cloneBytes(cfg.JWT.Access.PublicKey)
	out.JWT.Refresh.PrivateKey = cloneBytes(cfg.JWT.Refresh.PrivateKey)
	out.JWT.Refresh.PublicKey = cloneBytes(cfg.JWT.Refresh.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) tokenConfig() token.Config {
	method := token.SigningMethod(strings.ToLower(c.JWT.SigningMethod))
	profile := func(k KeyConfig) token.ProfileConfig {
		return token.ProfileConfig{
			TTL:           k.TTL,
			SigningMethod: method,
			PrivateKey:    k.PrivateKey,
			PublicKey:     k.PublicKey,
			KeyID:         k.KeyID,
		}
	}
	return token.Config{
		Access:   profile(c.JWT.Access),
		Refresh:  profile(c.JWT.Refresh),
		Issuer:   c.JWT.Issuer,
		Audience: c.JWT.Audience,
		Leeway:   c.JWT.Leeway,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Service cannot run with.
func (c *Config) Validate() error {
	// JWT
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256", "ed25519":
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Access.TTL <= 0 {
		return errors.New("JWT Access TTL must be > 0")
	}
	if c.JWT.Refresh.TTL <= 0 {
		return errors.New("JWT Refresh TTL must be > 0")
	}
	if len(c.JWT.Access.PrivateKey) == 0 {
		return errors.New("JWT Access key required")
	}
	if len(c.JWT.Refresh.PrivateKey) == 0 {
		return errors.New("JWT Refresh key required")
	}
	if strings.EqualFold(c.JWT.SigningMethod, "hs256") {
		if len(c.JWT.Access.PrivateKey) < token.MinHMACSecretBytes ||
			len(c.JWT.Refresh.PrivateKey) < token.MinHMACSecretBytes {
			return fmt.Errorf("JWT hs256 secrets must be at least %d bytes", token.MinHMACSecretBytes)
		}
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}

	// Login
	if c.Login.MaxAttempts <= 0 {
		return errors.New("Login MaxAttempts must be > 0")
	}
	if c.Login.Lockout <= 0 {
		return errors.New("Login Lockout must be > 0")
	}
	if c.Login.Window <= 0 {
		return errors.New("Login Window must be > 0")
	}

	// Store
	if c.Store.OperationTimeout < 0 {
		return errors.New("Store OperationTimeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks a lint warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one advisory finding. Lint never blocks Build.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins warnings at or above min into one error, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that are valid but risky or surprising.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if strings.EqualFold(c.JWT.SigningMethod, "hs256") {
		add("signing_hs256", LintInfo, "symmetric signing: every verifier holds the signing secret")
		if len(c.JWT.Access.PrivateKey) > 0 && bytes.Equal(c.JWT.Access.PrivateKey, c.JWT.Refresh.PrivateKey) {
			add("secrets_shared", LintHigh, "access and refresh tokens share one secret")
		}
	}
	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway above 1m widens the replay window")
	}
	if c.JWT.Access.TTL > 15*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens live longer than 15m")
	}
	if c.JWT.Refresh.TTL > 30*24*time.Hour {
		add("refresh_ttl_long", LintInfo, "refresh tokens live longer than 30 days")
	}
	if c.JWT.Refresh.TTL > 0 && c.JWT.Refresh.TTL < c.JWT.Access.TTL {
		add("refresh_shorter_than_access", LintHigh, "refresh TTL is shorter than access TTL")
	}
	if c.Session.TTL > 0 && c.Session.TTL < c.JWT.Refresh.TTL {
		add("session_shorter_than_refresh", LintInfo, "refresh tokens outlive the session window; refresh fails with session expired after it")
	}
	if c.Login.MaxAttempts > 10 {
		add("lockout_threshold_high", LintWarn, "more than 10 failures allowed before lockout")
	}
	if c.Login.Lockout > 0 && c.Login.Lockout < time.Minute {
		add("lockout_short", LintWarn, "lockout shorter than 1m barely slows guessing")
	}
	if c.Password.Memory < 19*1024 {
		add("argon2_memory_low", LintWarn, "Argon2id memory below 19 MiB")
	}
	if c.Store.OperationTimeout == 0 {
		add("store_timeout_disabled", LintHigh, "store calls have no deadline and can hang logins on a stalled store")
	}
	if c.Store.OperationTimeout > 5*time.Second {
		add("store_timeout_long", LintInfo, "store calls may hold requests for more than 5s")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not emitted")
	}

	return ws
}
