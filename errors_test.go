package authcore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/debtflow/authcore/kv"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidCredentials, CodeInvalidCredentials},
		{&AccountBlockedError{RetryAfter: time.Minute}, CodeAccountBlocked},
		{fmt.Errorf("login: %w", &AccountBlockedError{}), CodeAccountBlocked},
		{ErrInvalidRefreshToken, CodeInvalidRefreshToken},
		{ErrSessionExpired, CodeSessionExpired},
		{ErrUnauthorized, CodeUnauthorized},
		{ErrInvalidToken, CodeUnauthorized},
		{storeErr(fmt.Errorf("attempt: get: %w", kv.ErrUnavailable)), CodeInternal},
		{errors.New("something else"), CodeInternal},
	}

	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{0, 0},
		{900 * time.Second, 900},
		{899*time.Second + time.Millisecond, 900},
		{time.Nanosecond, 1},
	}
	for _, tt := range tests {
		e := &AccountBlockedError{RetryAfter: tt.d}
		if got := e.RetryAfterSeconds(); got != tt.want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestAccountBlockedMessageMatchesRetryAfter(t *testing.T) {
	e := &AccountBlockedError{RetryAfter: 899*time.Second + 500*time.Millisecond}
	if got, want := e.Error(), "account blocked: retry after 900s"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestStoreErrKeepsCause(t *testing.T) {
	cause := fmt.Errorf("session: get: %w", kv.ErrUnavailable)
	err := storeErr(cause)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatal("expected ErrStoreUnavailable")
	}
	if !errors.Is(err, kv.ErrUnavailable) {
		t.Fatal("expected the kv cause to stay reachable")
	}

	other := errors.New("boom")
	if storeErr(other) != other {
		t.Fatal("non-store errors must pass through")
	}
	if storeErr(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
