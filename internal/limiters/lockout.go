package limiters

import "time"

// LockoutConfig holds the brute-force lockout policy constants. The same
// policy is consulted by both the primary-secret check and the second-factor
// check; the counters themselves are independent.
type LockoutConfig struct {
	Threshold int           // consecutive failures before the lock arms
	Duration  time.Duration // how long the lock holds
}

// IsLocked reports whether the account lock is currently armed. lockedUntil
// is a unix-seconds instant (UTC by construction); zero means never locked.
// The lock clears purely by time elapsing; there is no unlock operation.
func IsLocked(lockedUntil int64, now time.Time) bool {
	return lockedUntil > 0 && lockedUntil > now.Unix()
}

// Remaining returns how much lock time is left, or zero when unlocked.
func Remaining(lockedUntil int64, now time.Time) time.Duration {
	if !IsLocked(lockedUntil, now) {
		return 0
	}
	return time.Duration(lockedUntil-now.Unix()) * time.Second
}
