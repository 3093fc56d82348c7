// Package metrics provides lock-free counters and a latency histogram for
// authcore observability.
//
// # Design
//
// Each counter is an [sync/atomic.Uint64] padded to its own cache line. The
// AuthorizeRequest latency histogram has 8 fixed buckets, see [LatencyBounds];
// the exporters publish the same bounds. Writes never allocate.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import authcore or any sibling package.
//   - Expose global metric registries.
package metrics
