// Package stores provides the Redis-backed persistence layer for the single
// administrator account record.
//
// # Design
//
// The account is one Redis hash at a fixed key. Every read-modify-write
// transition (failure counters, lockout, one-time-code supersession and
// consumption, session replacement and escalation) is a Lua script, so two
// concurrent requests can never both observe a sub-threshold counter or both
// consume the same code. Plain reads use HGETALL and need no locking.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Log or expose plaintext secrets; only digests are persisted.
//   - Use non-constant-time comparisons for secret matching on the Go side.
package stores
