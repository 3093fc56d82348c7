// Package httpapi exposes an authcore Service over HTTP with echo.
//
// Routes:
//
//	POST /auth/login    email + password; sets access_token and refresh_token cookies
//	POST /auth/refresh  refresh_token cookie or body; sets a new access_token cookie
//	POST /auth/logout   revokes the caller's session and clears both cookies
//	GET  /auth/me       the verified principal
//	GET  /healthz       store round-trip
//	GET  /metrics       Prometheus text exposition
//
// Handlers are thin: they bind the request, call the Service and map its
// errors to status codes in one place (401, 423 with Retry-After, 500).
package httpapi
