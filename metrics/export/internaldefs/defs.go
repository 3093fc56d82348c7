package internaldefs

import (
	"github.com/debtflow/authcore"
)

// BucketCount is the number of latency buckets in a snapshot histogram.
const BucketCount = 8

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// AuditSource exposes the audit dispatcher counters of a Service.
type AuditSource interface {
	AuditDropped() uint64
	AuditDelivered() uint64
}

// AuditDef names one exported audit dispatcher counter.
type AuditDef struct {
	Name string
	Help string
	Read func(AuditSource) uint64
}

const (
	AuditDroppedName   = "authcore_audit_dropped_total"
	AuditDeliveredName = "authcore_audit_delivered_total"
)

var AuditDefs = []AuditDef{
	{Name: AuditDroppedName, Help: "Audit events dropped because the dispatcher buffer was full.", Read: AuditSource.AuditDropped},
	{Name: AuditDeliveredName, Help: "Audit events handed to the audit sink.", Read: AuditSource.AuditDelivered},
}

var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Logins rejected for an unknown email or a wrong password."},
	{ID: authcore.MetricLoginBlocked, Name: "authcore_login_blocked_total", Help: "Logins rejected because the email and IP pair is locked out."},
	{ID: authcore.MetricLockoutTriggered, Name: "authcore_lockout_triggered_total", Help: "Lockouts started after reaching the failure threshold."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Access tokens re-issued from a refresh token."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Refresh attempts with an invalid refresh token."},
	{ID: authcore.MetricRefreshSessionExpired, Name: "authcore_refresh_session_expired_total", Help: "Refresh attempts for a session that no longer exists."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Sessions created by login."},
	{ID: authcore.MetricSessionReused, Name: "authcore_session_reused_total", Help: "Logins bound to an already live session."},
	{ID: authcore.MetricSessionRevoked, Name: "authcore_session_revoked_total", Help: "Sessions revoked explicitly."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logouts by access token."},
	{ID: authcore.MetricAuthorizeSuccess, Name: "authcore_authorize_success_total", Help: "Requests authorized."},
	{ID: authcore.MetricAuthorizeUnauthorized, Name: "authcore_authorize_unauthorized_total", Help: "Requests with a missing or invalid access token."},
	{ID: authcore.MetricAuthorizeSessionExpired, Name: "authcore_authorize_session_expired_total", Help: "Requests whose session no longer exists."},
	{ID: authcore.MetricStoreError, Name: "authcore_store_error_total", Help: "Operations failed by the key-value store."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthorizeLatency, Name: "authcore_authorize_latency_seconds", Help: "AuthorizeRequest latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket for exporters that cannot use labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
