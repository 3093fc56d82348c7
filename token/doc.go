// Package token issues and verifies the signed access and refresh tokens used by
// authcore.
//
// Two independent signing profiles exist: a short-lived access profile whose claims
// carry the principal snapshot and session id, and a long-lived refresh profile whose
// claims carry only the session id. Each claim set is tagged with a "typ" claim, so a
// token minted by one profile never verifies as the other even when both profiles are
// configured with the same key.
//
// Every verification failure (bad format, bad signature, wrong algorithm, wrong type,
// expired, not yet valid) is reported as [ErrInvalidToken]. Callers never learn which
// check failed.
//
// # What this package must NOT do
//
//   - Perform I/O. Whether the referenced session is still live is the caller's check.
package token
