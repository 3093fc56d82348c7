// Package audit delivers security events (logins, lockouts, revocations)
// to a pluggable sink without blocking the request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zerolog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full.
//   - [Event]: timestamp, type, user, session, IP, metadata.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Service does that.
//   - Import authcore or any sibling internal package.
package audit
