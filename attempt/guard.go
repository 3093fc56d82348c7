package attempt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/debtflow/authcore/kv"
)

// ErrCorruptCounter is returned when a failure counter holds a value that is
// not a non-negative integer.
var ErrCorruptCounter = errors.New("attempt: corrupt failure counter")

// Guard stores failure counters and block flags. It holds no in-process state.
type Guard struct {
	store  kv.Store
	window time.Duration
}

// NewGuard creates a Guard whose counters expire window after their first hit.
func NewGuard(store kv.Store, window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultPolicy().Window
	}
	return &Guard{store: store, window: window}
}

// IsBlocked reports whether a block flag exists for the pair.
func (g *Guard) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	ok, err := g.store.Exists(ctx, blockKey(email, ip))
	if err != nil {
		return false, fmt.Errorf("attempt: is blocked: %w", err)
	}
	return ok, nil
}

// BlockRemaining returns the remaining lockout and whether a block exists.
// A flag without expiry reports zero remaining time but still blocks.
func (g *Guard) BlockRemaining(ctx context.Context, email, ip string) (time.Duration, bool, error) {
	ttl, err := g.store.TTL(ctx, blockKey(email, ip))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("attempt: block remaining: %w", err)
	}
	if ttl == kv.NoExpiry {
		return 0, true, nil
	}
	return ttl, true, nil
}

// Increment records one failure and returns the new count.
func (g *Guard) Increment(ctx context.Context, email, ip string) (int64, error) {
	n, err := g.store.IncrWithTTL(ctx, failKey(email, ip), g.window)
	if err != nil {
		return 0, fmt.Errorf("attempt: increment: %w", err)
	}
	return n, nil
}

// Block sets the block flag for ttl, overwriting any existing flag.
func (g *Guard) Block(ctx context.Context, email, ip string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("attempt: block ttl must be > 0")
	}
	if err := g.store.Set(ctx, blockKey(email, ip), "1", ttl); err != nil {
		return fmt.Errorf("attempt: block: %w", err)
	}
	return nil
}

// Reset deletes the failure counter. The block flag is left alone.
func (g *Guard) Reset(ctx context.Context, email, ip string) error {
	if _, err := g.store.Del(ctx, failKey(email, ip)); err != nil {
		return fmt.Errorf("attempt: reset: %w", err)
	}
	return nil
}

// Attempts returns the current failure count, zero when absent.
func (g *Guard) Attempts(ctx context.Context, email, ip string) (int64, error) {
	raw, err := g.store.Get(ctx, failKey(email, ip))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("attempt: attempts: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrCorruptCounter, raw)
	}
	return n, nil
}

// Unblock lifts a block and clears the counter. Operator use only.
func (g *Guard) Unblock(ctx context.Context, email, ip string) error {
	if _, err := g.store.Del(ctx, blockKey(email, ip), failKey(email, ip)); err != nil {
		return fmt.Errorf("attempt: unblock: %w", err)
	}
	return nil
}
