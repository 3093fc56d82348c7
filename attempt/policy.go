package attempt

import (
	"errors"
	"time"
)

// Policy decides when repeated failures turn into a block.
type Policy struct {
	Threshold int
	Lockout   time.Duration
	Window    time.Duration
}

// DefaultPolicy blocks on the third failure within 15 minutes, for 15 minutes.
func DefaultPolicy() Policy {
	return Policy{
		Threshold: 3,
		Lockout:   15 * time.Minute,
		Window:    15 * time.Minute,
	}
}

// Exceeded reports whether count failures reach the threshold.
func (p Policy) Exceeded(count int64) bool {
	return count >= int64(p.Threshold)
}

// Validate rejects policies that could never block or never expire.
func (p Policy) Validate() error {
	if p.Threshold <= 0 {
		return errors.New("attempt policy: threshold must be > 0")
	}
	if p.Lockout <= 0 {
		return errors.New("attempt policy: lockout must be > 0")
	}
	if p.Window <= 0 {
		return errors.New("attempt policy: window must be > 0")
	}
	return nil
}
