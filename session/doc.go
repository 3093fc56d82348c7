// Package session owns the session lifecycle: create or reuse on login,
// access-token refresh, and revocation.
//
// # Keys
//
//   - session:{sessionId}  : JSON [Record], TTL = session window
//   - user_session:{userId}: sessionId of the user's live session, same TTL
//
// The two keys are written independently and may expire independently.
// Presence is always re-read from the store; nothing is cached in-process.
//
// # What this package must NOT do
//
//   - Import authcore (no upward imports).
//   - Count login failures or decide on lockouts.
//   - Store passwords or tokens in a [Record].
package session
