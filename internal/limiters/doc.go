// Package limiters holds the pure lockout policy and the Redis-backed
// send-code throttle.
//
// The lockout policy is a stateless decision over the account's lock
// timestamp; the counters that feed it live in internal/stores and are
// incremented atomically there. The send-code limiter owns its own Redis key
// namespace and only counts; the engine decides consequences.
package limiters
