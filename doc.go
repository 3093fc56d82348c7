// Package authcore manages login sessions and failed-login lockouts for the
// debt service API.
//
// A successful [Service.Login] binds the user to one live server-side session
// (reused across logins while it is alive) and returns an access/refresh token
// pair. Every authorized request checks that the session still exists, so
// [Service.Revoke] takes effect immediately. Failed logins are counted per
// (email, client IP) pair and the pair is locked out once the threshold is hit.
//
// # Architecture boundaries
//
// authcore is the public surface: [Service], [Builder], [Config] and the error
// sentinels. Key layout lives in the attempt and session packages; the store
// contract lives in kv. HTTP concerns (cookies, status codes) belong to the
// middleware package and internal/httpapi, never to this package.
//
// # Concurrency
//
// Service methods are safe for concurrent use after [Builder.Build]. The only
// in-process state is the metrics counters and the audit dispatcher buffer;
// everything else is in the store.
package authcore
