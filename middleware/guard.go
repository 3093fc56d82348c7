package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/debtflow/authcore"
)

// AccessTokenCookie is the cookie the HTTP adapter stores the access token in.
const AccessTokenCookie = "access_token"

// Authorizer is satisfied by *authcore.Service.
type Authorizer interface {
	AuthorizeRequest(ctx context.Context, rawToken string) (*authcore.Principal, error)
}

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by [RequireSession].
func PrincipalFromContext(ctx context.Context) (*authcore.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authcore.Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *authcore.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// RequireSession rejects requests without a valid access token bound to a
// live session. The token is read from the access_token cookie, falling back
// to an Authorization: Bearer header.
func RequireSession(svc Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := TokenFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			p, err := svc.AuthorizeRequest(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// TokenFromRequest extracts the access token from the cookie or the
// Authorization header, in that order.
func TokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func writeError(w http.ResponseWriter, err error) {
	switch authcore.Code(err) {
	case authcore.CodeSessionExpired:
		http.Error(w, "session expired", http.StatusUnauthorized)
	case authcore.CodeInternal:
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
