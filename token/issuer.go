package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the single failure reported by every verification path.
var ErrInvalidToken = errors.New("invalid token")

// SigningMethod selects the JWT algorithm of a profile.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// MinHMACSecretBytes is the shortest accepted HS256 secret.
const MinHMACSecretBytes = 32

// ProfileConfig configures one signing profile.
type ProfileConfig struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for HS256, or the Ed25519 private key (raw or PEM).
	PrivateKey []byte
	// PublicKey is the Ed25519 verification key (raw or PEM). Unused for HS256.
	PublicKey []byte
	KeyID     string
}

// Config configures an [Issuer].
type Config struct {
	Access       ProfileConfig
	Refresh      ProfileConfig
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
	// Now overrides the clock; tests only.
	Now func() time.Time
}

type profile struct {
	kind      Kind
	ttl       time.Duration
	keyID     string
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
}

// Issuer signs and verifies access and refresh tokens. It holds no mutable state
// and is safe for concurrent use.
type Issuer struct {
	access   profile
	refresh  profile
	issuer   string
	audience string
	leeway   time.Duration
	maxIAT   time.Duration
	now      func() time.Time
}

// NewIssuer validates cfg and prepares both profiles.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	access, err := newProfile(KindAccess, cfg.Access)
	if err != nil {
		return nil, fmt.Errorf("access profile: %w", err)
	}
	refresh, err := newProfile(KindRefresh, cfg.Refresh)
	if err != nil {
		return nil, fmt.Errorf("refresh profile: %w", err)
	}

	return &Issuer{
		access:   access,
		refresh:  refresh,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		maxIAT:   cfg.MaxFutureIAT,
		now:      cfg.Now,
	}, nil
}

func newProfile(kind Kind, cfg ProfileConfig) (profile, error) {
	p := profile{kind: kind, ttl: cfg.TTL, keyID: strings.TrimSpace(cfg.KeyID)}
	if cfg.TTL <= 0 {
		return p, errors.New("invalid TTL configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.PrivateKey) < MinHMACSecretBytes {
			return p, fmt.Errorf("hs256 requires a secret of at least %d bytes", MinHMACSecretBytes)
		}
		p.method = jwt.SigningMethodHS256
		p.signKey = cfg.PrivateKey
		p.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return p, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		if len(cfg.PublicKey) > 0 {
			if pub, err = parseEdPublicKey(cfg.PublicKey); err != nil {
				return p, err
			}
		}
		p.method = jwt.SigningMethodEdDSA
		p.signKey = priv
		p.verifyKey = pub
	default:
		return p, errors.New("unsupported signing method")
	}

	return p, nil
}

// AccessTTL is the lifetime stamped on access tokens.
func (i *Issuer) AccessTTL() time.Duration { return i.access.ttl }

// RefreshTTL is the lifetime stamped on refresh tokens.
func (i *Issuer) RefreshTTL() time.Duration { return i.refresh.ttl }

// IssueAccess signs c with the access profile and a fresh expiry.
func (i *Issuer) IssueAccess(c AccessClaims) (string, error) {
	if c.UserID == "" || c.SessionID == "" {
		return "", errors.New("access claims require user id and session id")
	}
	c.Type = KindAccess
	c.RegisteredClaims = i.registered(i.access.ttl)
	return i.sign(&i.access, &c)
}

// IssueRefresh signs c with the refresh profile and a fresh expiry.
func (i *Issuer) IssueRefresh(c RefreshClaims) (string, error) {
	if c.SessionID == "" {
		return "", errors.New("refresh claims require session id")
	}
	c.Type = KindRefresh
	c.RegisteredClaims = i.registered(i.refresh.ttl)
	return i.sign(&i.refresh, &c)
}

// VerifyAccess checks an access token and returns its claims.
func (i *Issuer) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(&i.access, raw, claims); err != nil {
		return nil, err
	}
	if claims.Type != KindAccess || claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh checks a refresh token and returns its claims.
func (i *Issuer) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(&i.refresh, raw, claims); err != nil {
		return nil, err
	}
	if claims.Type != KindRefresh || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify accepts a token from either profile and returns the matching claim shape.
func (i *Issuer) Verify(raw string) (Claims, error) {
	if access, err := i.VerifyAccess(raw); err == nil {
		return access, nil
	}
	if refresh, err := i.VerifyRefresh(raw); err == nil {
		return refresh, nil
	}
	return nil, ErrInvalidToken
}

func (i *Issuer) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	rc := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if i.audience != "" {
		rc.Audience = jwt.ClaimStrings{i.audience}
	}
	return rc
}

func (i *Issuer) sign(p *profile, claims jwt.Claims) (string, error) {
	tok := jwt.NewWithClaims(p.method, claims)
	if p.keyID != "" {
		tok.Header["kid"] = p.keyID
	}
	return tok.SignedString(p.signKey)
}

func (i *Issuer) parse(p *profile, raw string, claims jwt.Claims) error {
	if raw == "" {
		return ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.leeway > 0 {
		options = append(options, jwt.WithLeeway(i.leeway))
	}
	if i.issuer != "" {
		options = append(options, jwt.WithIssuer(i.issuer))
	}
	if i.audience != "" {
		options = append(options, jwt.WithAudience(i.audience))
	}

	tok, err := jwt.NewParser(options...).ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != p.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if p.keyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != p.keyID {
				return nil, errors.New("unknown kid")
			}
		}
		return p.verifyKey, nil
	})
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}

	iat, err := claims.GetIssuedAt()
	if err != nil {
		return ErrInvalidToken
	}
	if iat != nil && iat.Time.After(i.now().Add(i.maxIAT)) {
		return ErrInvalidToken
	}
	return nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
