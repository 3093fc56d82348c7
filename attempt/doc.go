// Package attempt tracks failed logins per (email, ip) pair.
//
// # Keys
//
// Fixed-window counters: INCR with EXPIRE on the first hit, in one atomic step.
//   - login:fail:{email}:{ip} : failure counter, TTL = counter window
//   - login:block:{email}:{ip}: block flag "1", TTL = lockout duration
//
// The two keys expire independently. Resetting the counter never lifts a block.
//
// # What this package must NOT do
//
//   - Decide when to block. [Policy] is applied by the caller.
//   - Swallow store errors. A failed read is never "not blocked".
package attempt
