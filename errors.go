package authcore

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/debtflow/authcore/kv"
	"github.com/debtflow/authcore/session"
	"github.com/debtflow/authcore/token"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBlocked is matched by every [*AccountBlockedError].
	ErrAccountBlocked = errors.New("account blocked")
	// ErrInvalidToken is the token package sentinel, re-exported.
	ErrInvalidToken = token.ErrInvalidToken
	// ErrInvalidRefreshToken is returned when a refresh token fails verification.
	ErrInvalidRefreshToken = session.ErrInvalidRefreshToken
	// ErrSessionExpired is returned when a valid token references a session
	// that is no longer in the store.
	ErrSessionExpired = session.ErrSessionExpired
	// ErrUnauthorized is returned by the request gate for a missing or invalid token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound is returned by a [UserProvider] when no user has the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable wraps every key-value store failure.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is returned by methods on a zero or closed Service.
	ErrEngineNotReady = errors.New("service not initialized")
)

// AccountBlockedError reports an active lockout for an (email, ip) pair.
type AccountBlockedError struct {
	RetryAfter time.Duration
}

func (e *AccountBlockedError) Error() string {
	return "account blocked: retry after " + strconv.FormatInt(e.RetryAfterSeconds(), 10) + "s"
}

// Is makes errors.Is(err, ErrAccountBlocked) hold.
func (e *AccountBlockedError) Is(target error) bool {
	return target == ErrAccountBlocked
}

// RetryAfterSeconds rounds the remaining lockout up to whole seconds.
func (e *AccountBlockedError) RetryAfterSeconds() int64 {
	secs := int64(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// Stable machine codes returned by [Code].
const (
	CodeInvalidCredentials  = "auth.invalid_credentials"
	CodeAccountBlocked      = "auth.account_blocked"
	CodeInvalidRefreshToken = "session.invalid_refresh_token"
	CodeSessionExpired      = "session.expired"
	CodeUnauthorized        = "auth.unauthorized"
	CodeInternal            = "common.internal"
)

// Code maps err to a stable machine code. Unknown and infrastructure errors
// are CodeInternal.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnavailable):
		return CodeInternal
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrAccountBlocked):
		return CodeAccountBlocked
	case errors.Is(err, ErrInvalidRefreshToken):
		return CodeInvalidRefreshToken
	case errors.Is(err, ErrSessionExpired):
		return CodeSessionExpired
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}

// storeErr rewraps a store failure under ErrStoreUnavailable, keeping the cause.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kv.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
