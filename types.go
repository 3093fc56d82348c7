package authcore

import (
	"context"
	"io"

	internalaudit "github.com/debtflow/authcore/internal/audit"
	internalmetrics "github.com/debtflow/authcore/internal/metrics"
	"github.com/debtflow/authcore/session"
	"github.com/rs/zerolog"
)

// UserProvider looks up the credentials of a user by email. It is owned by
// the user-management side of the application.
type UserProvider interface {
	// FindByEmail returns ErrUserNotFound when no user has the address.
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
}

// UserRecord is what the login flow needs from the user store.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
}

// Principal is the verified identity attached to an authorized request.
type Principal = session.Principal

// Tokens is the access/refresh pair returned by Login.
type Tokens = session.Tokens

// AuditEvent is a structured audit record emitted by the Service.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// LoggerSink writes events through a zerolog logger.
type LoggerSink = internalaudit.LoggerSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLoggerSink creates a [LoggerSink] on logger.
func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}

// Audit event types.
const (
	EventLoginSuccess     = "login_success"
	EventLoginFailure     = "login_failure"
	EventLoginBlocked     = "login_blocked"
	EventLockoutTriggered = "lockout_triggered"
	EventRefreshSuccess   = "refresh_success"
	EventRefreshFailure   = "refresh_failure"
	EventSessionRevoked   = "session_revoked"
	EventLogout           = "logout"
)

// MetricID identifies a counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess            = internalmetrics.MetricLoginSuccess
	MetricLoginFailure            = internalmetrics.MetricLoginFailure
	MetricLoginBlocked            = internalmetrics.MetricLoginBlocked
	MetricLockoutTriggered        = internalmetrics.MetricLockoutTriggered
	MetricRefreshSuccess          = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure          = internalmetrics.MetricRefreshFailure
	MetricRefreshSessionExpired   = internalmetrics.MetricRefreshSessionExpired
	MetricSessionCreated          = internalmetrics.MetricSessionCreated
	MetricSessionReused           = internalmetrics.MetricSessionReused
	MetricSessionRevoked          = internalmetrics.MetricSessionRevoked
	MetricLogout                  = internalmetrics.MetricLogout
	MetricAuthorizeSuccess        = internalmetrics.MetricAuthorizeSuccess
	MetricAuthorizeUnauthorized   = internalmetrics.MetricAuthorizeUnauthorized
	MetricAuthorizeSessionExpired = internalmetrics.MetricAuthorizeSessionExpired
	MetricStoreError              = internalmetrics.MetricStoreError
	MetricAuthorizeLatency        = internalmetrics.MetricAuthorizeLatency
)

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
