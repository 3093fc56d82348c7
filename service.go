package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/debtflow/authcore/attempt"
	internalaudit "github.com/debtflow/authcore/internal/audit"
	"github.com/debtflow/authcore/kv"
	"github.com/debtflow/authcore/password"
	"github.com/debtflow/authcore/session"
	"github.com/debtflow/authcore/token"
	"github.com/rs/zerolog"
)

// Service is the login, refresh and request-authorization entry point.
//
// Service instances are built once by [Builder.Build] and are safe for
// concurrent use.
type Service struct {
	config   Config
	store    kv.Store
	tokens   *token.Issuer
	guard    *attempt.Guard
	policy   attempt.Policy
	sessions *session.Manager
	users    UserProvider
	hasher   password.Hasher
	logger   zerolog.Logger
	metrics  *Metrics
	audit    *internalaudit.Dispatcher

	// dummyHash is compared against the password when the email is unknown.
	dummyHash string
}

// Close flushes pending audit events. The store client is not closed.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.audit != nil {
		s.audit.Close()
	}
}

// AuditDropped counts audit events dropped because the buffer was full.
func (s *Service) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// AuditDelivered counts audit events handed to the sink.
func (s *Service) AuditDelivered() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Delivered()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

// Config returns a copy of the effective configuration.
func (s *Service) Config() Config {
	return cloneConfig(s.config)
}

func (s *Service) metricInc(id MetricID) {
	if s == nil || s.metrics == nil {
		return
	}
	s.metrics.Inc(id)
}

func (s *Service) ready() bool {
	return s != nil && s.sessions != nil && s.guard != nil && s.tokens != nil
}

// Login checks the lockout for (email, ip), verifies the password and binds
// the user to their live session.
//
// A locked pair fails with *AccountBlockedError before the user store is
// consulted and without counting the attempt. An unknown email and a wrong
// password both count as a failure and return ErrInvalidCredentials; the
// failure that reaches the threshold locks the pair.
func (s *Service) Login(ctx context.Context, email, plain, ip string) (Tokens, error) {
	if !s.ready() || s.users == nil || s.hasher == nil {
		return Tokens{}, ErrEngineNotReady
	}
	email = attempt.NormalizeEmail(email)
	ctx = WithClientIP(ctx, ip)

	remaining, blocked, err := s.guard.BlockRemaining(ctx, email, ip)
	if err != nil {
		return Tokens{}, s.internalFailure("login.block_check", err)
	}
	if blocked {
		blockedErr := &AccountBlockedError{RetryAfter: remaining}
		s.metricInc(MetricLoginBlocked)
		s.logger.Warn().
			Str("email", email).
			Str("ip", ip).
			Int64("retry_after_s", blockedErr.RetryAfterSeconds()).
			Msg("login rejected: account blocked")
		s.emitAudit(ctx, EventLoginBlocked, false, "", "", blockedErr, func() map[string]string {
			return map[string]string{"retry_after": strconv.FormatInt(blockedErr.RetryAfterSeconds(), 10)}
		})
		return Tokens{}, blockedErr
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return Tokens{}, s.internalFailure("login.find_user", err)
		}
		_, _ = s.hasher.Compare(plain, s.dummyHash)
		return Tokens{}, s.failLogin(ctx, email, ip, "")
	}

	ok, err := s.hasher.Compare(plain, user.PasswordHash)
	if err != nil {
		return Tokens{}, s.internalFailure("login.compare_password", err)
	}
	if !ok {
		return Tokens{}, s.failLogin(ctx, email, ip, user.ID)
	}

	if err := s.guard.Reset(ctx, email, ip); err != nil {
		return Tokens{}, s.internalFailure("login.reset_attempts", err)
	}

	tokens, err := s.sessions.CreateOrReuse(ctx, Principal{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	})
	if err != nil {
		return Tokens{}, s.internalFailure("login.create_session", err)
	}

	s.metricInc(MetricLoginSuccess)
	if tokens.Reused {
		s.metricInc(MetricSessionReused)
	} else {
		s.metricInc(MetricSessionCreated)
	}
	s.emitAudit(ctx, EventLoginSuccess, true, user.ID, tokens.SessionID, nil, func() map[string]string {
		return map[string]string{"reused": strconv.FormatBool(tokens.Reused)}
	})

	return tokens, nil
}

func (s *Service) failLogin(ctx context.Context, email, ip, userID string) error {
	s.metricInc(MetricLoginFailure)

	count, err := s.guard.Increment(ctx, email, ip)
	if err != nil {
		return s.internalFailure("login.count_failure", err)
	}
	s.emitAudit(ctx, EventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"attempts": strconv.FormatInt(count, 10)}
	})

	if !s.policy.Exceeded(count) {
		return ErrInvalidCredentials
	}

	if err := s.guard.Block(ctx, email, ip, s.policy.Lockout); err != nil {
		return s.internalFailure("login.block", err)
	}
	s.metricInc(MetricLockoutTriggered)
	s.logger.Warn().
		Str("email", email).
		Str("ip", ip).
		Int64("attempts", count).
		Dur("lockout", s.policy.Lockout).
		Msg("login lockout triggered")
	s.emitAudit(ctx, EventLockoutTriggered, false, userID, "", ErrAccountBlocked, func() map[string]string {
		return map[string]string{"lockout": s.policy.Lockout.String()}
	})

	return ErrInvalidCredentials
}

// RefreshAccessToken exchanges a refresh token for a new access token. The
// refresh token is not rotated and the session window is not extended.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if !s.ready() {
		return "", ErrEngineNotReady
	}

	access, err := s.sessions.Refresh(ctx, refreshToken)
	switch {
	case err == nil:
		s.metricInc(MetricRefreshSuccess)
		s.emitAudit(ctx, EventRefreshSuccess, true, "", "", nil, nil)
		return access, nil
	case errors.Is(err, ErrInvalidRefreshToken):
		s.metricInc(MetricRefreshFailure)
		s.emitAudit(ctx, EventRefreshFailure, false, "", "", err, nil)
		return "", ErrInvalidRefreshToken
	case errors.Is(err, ErrSessionExpired):
		s.metricInc(MetricRefreshSessionExpired)
		s.emitAudit(ctx, EventRefreshFailure, false, "", "", err, nil)
		return "", ErrSessionExpired
	default:
		return "", s.internalFailure("refresh", err)
	}
}

// AuthorizeRequest verifies an access token and checks that its session is
// still live. The returned principal is the snapshot carried by the token.
func (s *Service) AuthorizeRequest(ctx context.Context, rawToken string) (*Principal, error) {
	if !s.ready() {
		return nil, ErrEngineNotReady
	}
	if s.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			s.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
		}()
	}

	if rawToken == "" {
		s.metricInc(MetricAuthorizeUnauthorized)
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.VerifyAccess(rawToken)
	if err != nil {
		s.metricInc(MetricAuthorizeUnauthorized)
		return nil, ErrUnauthorized
	}

	live, err := s.sessions.Exists(ctx, claims.SessionID)
	if err != nil {
		return nil, s.internalFailure("authorize.session_exists", err)
	}
	if !live {
		s.metricInc(MetricAuthorizeSessionExpired)
		return nil, ErrSessionExpired
	}

	s.metricInc(MetricAuthorizeSuccess)
	return &Principal{
		ID:        claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		SessionID: claims.SessionID,
	}, nil
}

// Revoke deletes a session. Tokens bound to it stop authorizing immediately.
// Revoking an unknown session is a no-op.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	if !s.ready() {
		return ErrEngineNotReady
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return s.internalFailure("revoke", err)
	}

	s.metricInc(MetricSessionRevoked)
	s.logger.Info().Str("session_id", sessionID).Msg("session revoked")
	s.emitAudit(ctx, EventSessionRevoked, true, "", sessionID, nil, nil)
	return nil
}

// Logout revokes the session named by an access token. An invalid token is
// ErrUnauthorized; an already revoked session is not an error.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if !s.ready() {
		return ErrEngineNotReady
	}

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return ErrUnauthorized
	}
	if err := s.sessions.Revoke(ctx, claims.SessionID); err != nil {
		return s.internalFailure("logout", err)
	}

	s.metricInc(MetricLogout)
	s.logger.Info().Str("session_id", claims.SessionID).Msg("session revoked by logout")
	s.emitAudit(ctx, EventLogout, true, claims.UserID, claims.SessionID, nil, nil)
	return nil
}

// Ping round-trips the store and reports the latency.
func (s *Service) Ping(ctx context.Context) (time.Duration, error) {
	if !s.ready() {
		return 0, ErrEngineNotReady
	}
	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		return 0, s.internalFailure("ping", err)
	}
	return time.Since(start), nil
}

// internalFailure logs an infrastructure error and rewraps store failures
// under ErrStoreUnavailable.
func (s *Service) internalFailure(op string, err error) error {
	s.logger.Error().Err(err).Str("op", op).Msg("operation failed")

	if errors.Is(err, kv.ErrUnavailable) {
		s.metricInc(MetricStoreError)
		return storeErr(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
