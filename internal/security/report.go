package security

import "time"

// PasswordReport mirrors the Argon2id cost of the default hasher.
type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report is the derived security posture of a running service.
type Report struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	SessionTTL         time.Duration
	AtomicSessionReuse bool
	Argon2             PasswordReport
	LockoutActive      bool
	MaxLoginAttempts   int
	LockoutDuration    time.Duration
	AttemptWindow      time.Duration
	// RefreshOutlivesSession is set when a refresh token stays valid past the
	// session window. Such tokens fail with session expired, not invalid token.
	RefreshOutlivesSession bool
	AuditEnabled           bool
	MetricsEnabled         bool
}

type ReportInput struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	SessionTTL         time.Duration
	AtomicSessionReuse bool
	Password           PasswordReport
	MaxLoginAttempts   int
	LockoutDuration    time.Duration
	AttemptWindow      time.Duration
	AuditEnabled       bool
	MetricsEnabled     bool
}

func BuildReport(input ReportInput) Report {
	lockout := input.MaxLoginAttempts > 0 &&
		input.LockoutDuration > 0

	return Report{
		SigningAlgorithm:       input.SigningAlgorithm,
		AccessTTL:              input.AccessTTL,
		RefreshTTL:             input.RefreshTTL,
		SessionTTL:             input.SessionTTL,
		AtomicSessionReuse:     input.AtomicSessionReuse,
		Argon2:                 input.Password,
		LockoutActive:          lockout,
		MaxLoginAttempts:       input.MaxLoginAttempts,
		LockoutDuration:        input.LockoutDuration,
		AttemptWindow:          input.AttemptWindow,
		RefreshOutlivesSession: input.RefreshTTL > input.SessionTTL,
		AuditEnabled:           input.AuditEnabled,
		MetricsEnabled:         input.MetricsEnabled,
	}
}
