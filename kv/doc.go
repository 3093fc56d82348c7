// Package kv defines the key-value contract shared by the session manager and the
// login attempt guard, plus its Redis implementation.
//
// # Architecture boundaries
//
// Components never hold a Redis client directly; they are handed a [Store]. Every
// mutation is a single-key command, and counters use [Store.IncrWithTTL] so that the
// increment and the first-hit expiry are one atomic step.
//
// # Failure semantics
//
// Transport failures (timeouts, refused connections, protocol errors) are wrapped
// with [ErrUnavailable]. A missing key is reported as [ErrNotFound] and is never
// conflated with an unavailable store.
package kv
