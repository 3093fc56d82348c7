package token

import "github.com/golang-jwt/jwt/v5"

// Kind tags a claim set with the profile that minted it.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the closed union of [*AccessClaims] and [*RefreshClaims].
type Claims interface {
	Kind() Kind
	Session() string
	isClaims()
}

// AccessClaims is the principal snapshot carried by an access token.
type AccessClaims struct {
	Type      Kind   `json:"typ"`
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// RefreshClaims only references the session a refresh token was minted for.
type RefreshClaims struct {
	Type      Kind   `json:"typ"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) Kind() Kind      { return KindAccess }
func (c *AccessClaims) Session() string { return c.SessionID }
func (c *AccessClaims) isClaims()       {}

func (c *RefreshClaims) Kind() Kind      { return KindRefresh }
func (c *RefreshClaims) Session() string { return c.SessionID }
func (c *RefreshClaims) isClaims()       {}
