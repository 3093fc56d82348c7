package envconfig

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", strings.Repeat("a", 32))
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("r", 32))

	s, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3000, s.Port)
	require.False(t, s.Production())
	require.Equal(t, 15*time.Minute, s.Auth.JWT.Access.TTL)
	require.Equal(t, 3, s.Auth.Login.MaxAttempts)
	require.True(t, s.Auth.Metrics.Enabled)
	require.NoError(t, s.Auth.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "8081")
	t.Setenv("JWT_ACCESS_EXPIRES_IN", "10m")
	t.Setenv("JWT_REFRESH_EXPIRES_IN_DAYS", "30")
	t.Setenv("SESSION_TTL", "2d")
	t.Setenv("SESSION_ATOMIC_REUSE", "true")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "5")
	t.Setenv("LOGIN_LOCKOUT", "30m")

	s, err := Load()
	require.NoError(t, err)
	require.True(t, s.Production())
	require.Equal(t, 8081, s.Port)
	require.Equal(t, 10*time.Minute, s.Auth.JWT.Access.TTL)
	require.Equal(t, 30*24*time.Hour, s.Auth.JWT.Refresh.TTL)
	require.Equal(t, 48*time.Hour, s.Auth.Session.TTL)
	require.True(t, s.Auth.Session.AtomicReuse)
	require.Equal(t, 5, s.Auth.Login.MaxAttempts)
	require.Equal(t, 30*time.Minute, s.Auth.Login.Lockout)
}

func TestLoadReportsMalformedValues(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("LOGIN_LOCKOUT", "soon")
	t.Setenv("AUDIT_ENABLED", "maybe")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "PORT")
	require.Contains(t, err.Error(), "LOGIN_LOCKOUT")
	require.Contains(t, err.Error(), "AUDIT_ENABLED")
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("7d")
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, d)

	d, err = ParseDuration("90s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("xd")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Settings{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"message":"shown"`)

	_, err = NewLogger(Settings{LogLevel: "loud"}, &buf)
	require.Error(t, err)
}
