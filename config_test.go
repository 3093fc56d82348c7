package authcore

import (
	"testing"
	"time"
)

func containsCode(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestDefaultConfigMatchesLoginPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Login.MaxAttempts != 3 || cfg.Login.Lockout != 15*time.Minute || cfg.Login.Window != 15*time.Minute {
		t.Fatalf("unexpected login policy: %+v", cfg.Login)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Fatalf("expected 24h session window, got %v", cfg.Session.TTL)
	}
	if cfg.JWT.Access.TTL != 15*time.Minute || cfg.JWT.Refresh.TTL != 7*24*time.Hour {
		t.Fatalf("unexpected token TTLs: %v / %v", cfg.JWT.Access.TTL, cfg.JWT.Refresh.TTL)
	}
}

func TestDefaultConfigNeedsKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without key material")
	}

	cfg = testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }},
		{"short hs256 secret", func(c *Config) { c.JWT.Refresh.PrivateKey = []byte("short") }},
		{"zero access ttl", func(c *Config) { c.JWT.Access.TTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.JWT.Refresh.TTL = 0 }},
		{"negative leeway", func(c *Config) { c.JWT.Leeway = -time.Second }},
		{"huge leeway", func(c *Config) { c.JWT.Leeway = 5 * time.Minute }},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"zero attempts", func(c *Config) { c.Login.MaxAttempts = 0 }},
		{"zero lockout", func(c *Config) { c.Login.Lockout = 0 }},
		{"zero window", func(c *Config) { c.Login.Window = 0 }},
		{"negative store timeout", func(c *Config) { c.Store.OperationTimeout = -1 }},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	cfg.JWT.Access.PrivateKey[0] = 'x'
	if clone.JWT.Access.PrivateKey[0] == 'x' {
		t.Fatal("clone shares key bytes with the source")
	}
}

func TestLint_DefaultsOnlyInformational(t *testing.T) {
	cfg := testConfig()
	ws := cfg.Lint()
	if high := ws.BySeverity(LintWarn); len(high) != 0 {
		t.Fatalf("expected no warnings above info, got %v", high.Codes())
	}
	if !containsCode(ws.Codes(), "session_shorter_than_refresh") {
		t.Error("expected session_shorter_than_refresh with the default windows")
	}
	if !containsCode(ws.Codes(), "audit_disabled") {
		t.Error("expected audit_disabled")
	}
}

func TestLint_SharedSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Refresh.PrivateKey = cfg.JWT.Access.PrivateKey
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "secrets_shared") {
		t.Fatal("expected secrets_shared warning")
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError to report the HIGH warning")
	}
}

func TestLint_Findings(t *testing.T) {
	tests := []struct {
		code   string
		mutate func(*Config)
	}{
		{"leeway_large", func(c *Config) { c.JWT.Leeway = 90 * time.Second }},
		{"access_ttl_long", func(c *Config) { c.JWT.Access.TTL = time.Hour }},
		{"refresh_ttl_long", func(c *Config) { c.JWT.Refresh.TTL = 60 * 24 * time.Hour }},
		{"refresh_shorter_than_access", func(c *Config) { c.JWT.Refresh.TTL = 5 * time.Minute }},
		{"lockout_threshold_high", func(c *Config) { c.Login.MaxAttempts = 50 }},
		{"lockout_short", func(c *Config) { c.Login.Lockout = 10 * time.Second }},
		{"argon2_memory_low", func(c *Config) { c.Password.Memory = 4096 }},
		{"store_timeout_long", func(c *Config) { c.Store.OperationTimeout = 10 * time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if !containsCode(cfg.Lint().Codes(), tt.code) {
				t.Fatalf("expected %s warning", tt.code)
			}
		})
	}
}

func TestLint_DisabledStoreTimeoutIsHigh(t *testing.T) {
	cfg := testConfig()
	cfg.Store.OperationTimeout = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, w := range cfg.Lint() {
		if w.Code == "store_timeout_disabled" {
			if w.Severity != LintHigh {
				t.Fatalf("severity = %v, want LintHigh", w.Severity)
			}
			if err := cfg.Lint().AsError(LintHigh); err == nil {
				t.Fatal("expected AsError(LintHigh) to report the disabled timeout")
			}
			return
		}
	}
	t.Fatal("expected store_timeout_disabled warning")
}

func TestLint_AsErrorNilBelowThreshold(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
