package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Principal is the authenticated identity snapshot carried by a session.
type Principal struct {
	ID        string
	Email     string
	Name      string
	SessionID string
}

// Tokens is the pair handed to a client on login, plus the session it is bound to.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	// Reused is true when the login joined the user's live session.
	Reused bool
}

// Record is the stored form of a session.
type Record struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"sessionId"`
	CreatedAt int64  `json:"createdAt"`
}

// Principal returns the identity stored in r.
func (r *Record) Principal() Principal {
	return Principal{ID: r.UserID, Email: r.Email, Name: r.Name, SessionID: r.SessionID}
}

// Created returns the creation time of the session.
func (r *Record) Created() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

func encodeRecord(r *Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRecord(raw string) (*Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if r.UserID == "" || r.SessionID == "" {
		return nil, ErrCorruptRecord
	}
	return &r, nil
}
