package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"
)

// Argon2 hashes with Argon2id and verifies Argon2id or legacy bcrypt hashes.
// It is immutable after construction and safe for concurrent use.
type Argon2 struct {
	config Config
}

var _ Hasher = (*Argon2)(nil)

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded Argon2id hash of plain. Input is hashed as raw
// bytes without Unicode normalization.
func (a *Argon2) Hash(plain string) (string, error) {
	switch {
	case len(plain) < minPassBytes:
		return "", ErrPasswordTooShort
	case len(plain) > a.config.MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
	}
	if _, err := io.ReadFull(rand.Reader, p.salt); err != nil {
		return "", err
	}
	p.key = p.derive(plain, a.config.KeyLength)
	return p.String(), nil
}

// Compare implements [Hasher]. Oversized input is a mismatch, not an error.
func (a *Argon2) Compare(plain, encoded string) (bool, error) {
	ok, err := a.Verify(plain, encoded)
	if errors.Is(err, ErrPasswordTooLong) {
		return false, nil
	}
	return ok, err
}

// Verify checks plain against an Argon2id or bcrypt hash. Unlike Compare it
// reports oversized input as ErrPasswordTooLong.
func (a *Argon2) Verify(plain, encoded string) (bool, error) {
	if len(plain) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	if isBcrypt(encoded) {
		return compareBcrypt(plain, encoded)
	}

	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	computed := p.derive(plain, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than this hasher, or is a legacy bcrypt hash.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	if isBcrypt(encoded) {
		return true, nil
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > p.memory ||
		a.config.Time > p.time ||
		a.config.Parallelism > p.parallelism ||
		a.config.KeyLength != uint32(len(p.key)), nil
}
