package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/debtflow/authcore/kv"
	"github.com/debtflow/authcore/token"
	"github.com/google/uuid"
)

const (
	recordPrefix  = "session:"
	pointerPrefix = "user_session:"
)

// DefaultTTL is the session window refreshed on every login.
const DefaultTTL = 24 * time.Hour

// Config tunes a [Manager].
type Config struct {
	TTL time.Duration
	// AtomicReuse claims the user pointer with SETNX so concurrent first logins
	// converge on one session id. Off by default: two racing first logins may
	// then mint two sessions until one expires.
	AtomicReuse bool
	// Now overrides the clock stamped into records; tests only.
	Now func() time.Time
}

// Manager creates, refreshes and revokes sessions. All state lives in the store.
type Manager struct {
	store  kv.Store
	tokens *token.Issuer
	ttl    time.Duration
	atomic bool
	now    func() time.Time
}

// NewManager creates a Manager over store and issuer.
func NewManager(store kv.Store, issuer *token.Issuer, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		store:  store,
		tokens: issuer,
		ttl:    cfg.TTL,
		atomic: cfg.AtomicReuse,
		now:    cfg.Now,
	}
}

func recordKey(sessionID string) string { return recordPrefix + sessionID }
func pointerKey(userID string) string   { return pointerPrefix + userID }

// TTL returns the session window.
func (m *Manager) TTL() time.Duration { return m.ttl }

// CreateOrReuse binds p to the user's live session, or a new one, extends
// the session window and issues a fresh token pair.
func (m *Manager) CreateOrReuse(ctx context.Context, p Principal) (Tokens, error) {
	if p.ID == "" {
		return Tokens{}, errors.New("session: principal id is required")
	}

	sid, reused, err := m.resolve(ctx, p.ID)
	if err != nil {
		return Tokens{}, err
	}

	rec := &Record{
		UserID:    p.ID,
		Email:     p.Email,
		Name:      p.Name,
		SessionID: sid,
		CreatedAt: m.now().Unix(),
	}
	rebind := false
	if reused {
		prev, err := m.Get(ctx, sid)
		switch {
		case err == nil && prev.UserID == p.ID:
			rec.CreatedAt = prev.CreatedAt
		case errors.Is(err, ErrSessionExpired):
		case err == nil, errors.Is(err, ErrCorruptRecord):
			// The pointer names a record this user does not own.
			sid, reused, rebind = uuid.NewString(), false, true
			rec.SessionID = sid
		default:
			return Tokens{}, err
		}
	}

	blob, err := encodeRecord(rec)
	if err != nil {
		return Tokens{}, fmt.Errorf("session: encode: %w", err)
	}
	if err := m.store.Set(ctx, recordKey(sid), blob, m.ttl); err != nil {
		return Tokens{}, fmt.Errorf("session: save record: %w", err)
	}
	if rebind {
		if err := m.store.Set(ctx, pointerKey(p.ID), sid, m.ttl); err != nil {
			return Tokens{}, fmt.Errorf("session: save pointer: %w", err)
		}
	} else if err := m.touchPointer(ctx, p.ID, sid, reused); err != nil {
		return Tokens{}, err
	}

	tokens, err := m.issue(rec)
	if err != nil {
		return Tokens{}, err
	}
	tokens.Reused = reused
	return tokens, nil
}

// resolve returns the session id to bind and whether it was already live.
func (m *Manager) resolve(ctx context.Context, userID string) (string, bool, error) {
	if !m.atomic {
		sid, err := m.store.Get(ctx, pointerKey(userID))
		if err == nil && sid != "" {
			return sid, true, nil
		}
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return "", false, fmt.Errorf("session: read pointer: %w", err)
		}
		return uuid.NewString(), false, nil
	}

	candidate := uuid.NewString()
	ok, err := m.store.SetNX(ctx, pointerKey(userID), candidate, m.ttl)
	if err != nil {
		return "", false, fmt.Errorf("session: claim pointer: %w", err)
	}
	if ok {
		return candidate, false, nil
	}
	sid, err := m.store.Get(ctx, pointerKey(userID))
	if err == nil && sid != "" {
		return sid, true, nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", false, fmt.Errorf("session: read pointer: %w", err)
	}
	// Pointer expired between SETNX and GET.
	if err := m.store.Set(ctx, pointerKey(userID), candidate, m.ttl); err != nil {
		return "", false, fmt.Errorf("session: save pointer: %w", err)
	}
	return candidate, false, nil
}

func (m *Manager) touchPointer(ctx context.Context, userID, sid string, reused bool) error {
	key := pointerKey(userID)
	if m.atomic {
		if !reused {
			// Written by resolve with the full window.
			return nil
		}
		ok, err := m.store.Expire(ctx, key, m.ttl)
		if err != nil {
			return fmt.Errorf("session: extend pointer: %w", err)
		}
		if ok {
			return nil
		}
	}
	if err := m.store.Set(ctx, key, sid, m.ttl); err != nil {
		return fmt.Errorf("session: save pointer: %w", err)
	}
	return nil
}

func (m *Manager) issue(rec *Record) (Tokens, error) {
	access, err := m.issueAccess(rec)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := m.tokens.IssueRefresh(token.RefreshClaims{SessionID: rec.SessionID})
	if err != nil {
		return Tokens{}, fmt.Errorf("session: issue refresh token: %w", err)
	}
	return Tokens{AccessToken: access, RefreshToken: refresh, SessionID: rec.SessionID}, nil
}

func (m *Manager) issueAccess(rec *Record) (string, error) {
	access, err := m.tokens.IssueAccess(token.AccessClaims{
		UserID:    rec.UserID,
		Email:     rec.Email,
		Name:      rec.Name,
		SessionID: rec.SessionID,
	})
	if err != nil {
		return "", fmt.Errorf("session: issue access token: %w", err)
	}
	return access, nil
}

// Refresh exchanges a refresh token for a new access token built from the
// stored snapshot. The refresh token itself is not rotated.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := m.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	rec, err := m.Get(ctx, claims.SessionID)
	if err != nil {
		return "", err
	}
	return m.issueAccess(rec)
}

// Revoke deletes a session and, while it still names this session, the
// user pointer. Revoking an absent session is a no-op.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	rec, err := m.Get(ctx, sessionID)
	switch {
	case err == nil:
		if _, err := m.store.CompareAndDelete(ctx, pointerKey(rec.UserID), sessionID); err != nil {
			return fmt.Errorf("session: delete pointer: %w", err)
		}
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrCorruptRecord):
	default:
		return err
	}

	if _, err := m.store.Del(ctx, recordKey(sessionID)); err != nil {
		return fmt.Errorf("session: delete record: %w", err)
	}
	return nil
}

// Exists reports whether the session record is live.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	ok, err := m.store.Exists(ctx, recordKey(sessionID))
	if err != nil {
		return false, fmt.Errorf("session: exists: %w", err)
	}
	return ok, nil
}

// Get loads a session record. An absent record is [ErrSessionExpired].
func (m *Manager) Get(ctx context.Context, sessionID string) (*Record, error) {
	if sessionID == "" {
		return nil, ErrSessionExpired
	}
	raw, err := m.store.Get(ctx, recordKey(sessionID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("session: get: %w", err)
	}
	return decodeRecord(raw)
}

// CountActive counts live session records with a full key scan. Admin use only.
func (m *Manager) CountActive(ctx context.Context) (int, error) {
	keys, err := m.store.Scan(ctx, recordPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("session: scan: %w", err)
	}
	return len(keys), nil
}
