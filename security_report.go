package authcore

import (
	"strings"

	"github.com/debtflow/authcore/internal/security"
)

// SecurityReport is a read-only snapshot of the service's security posture,
// returned by [Service.SecurityReport].
type SecurityReport = security.Report

// PasswordConfigReport is the Argon2id part of a [SecurityReport].
type PasswordConfigReport = security.PasswordReport

// SecurityReport summarizes the effective configuration. It contains no key
// material and is safe to log.
func (s *Service) SecurityReport() SecurityReport {
	if s == nil {
		return SecurityReport{}
	}

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:   strings.ToLower(s.config.JWT.SigningMethod),
		AccessTTL:          s.config.JWT.Access.TTL,
		RefreshTTL:         s.config.JWT.Refresh.TTL,
		SessionTTL:         s.config.Session.TTL,
		AtomicSessionReuse: s.config.Session.AtomicReuse,
		Password: security.PasswordReport{
			Memory:      s.config.Password.Memory,
			Time:        s.config.Password.Time,
			Parallelism: s.config.Password.Parallelism,
			SaltLength:  s.config.Password.SaltLength,
			KeyLength:   s.config.Password.KeyLength,
		},
		MaxLoginAttempts: s.config.Login.MaxAttempts,
		LockoutDuration:  s.config.Login.Lockout,
		AttemptWindow:    s.config.Login.Window,
		AuditEnabled:     s.config.Audit.Enabled,
		MetricsEnabled:   s.config.Metrics.Enabled,
	})
}
