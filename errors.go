package adminauth

import "errors"

var (
	// ErrInvalidCredential is returned for a wrong PIN or one-time code. The
	// wire boundary surfaces it and ErrAccountLocked identically to avoid
	// enumeration oracles; audit events carry the precise cause.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAccountLocked is returned while the brute-force lock is armed. The
	// supplied secret or code is not evaluated at all in that state.
	ErrAccountLocked = errors.New("account locked")
	// ErrSessionNotFound is returned when the presented token does not match
	// the account's active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the active session's expiry has
	// passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrInsufficientTrust is returned when a Partial session is presented
	// where Full trust is required.
	ErrInsufficientTrust = errors.New("insufficient session trust")
	// ErrCodeInvalid is returned for a wrong or already-consumed one-time
	// code.
	ErrCodeInvalid = errors.New("invalid code")
	// ErrCodeExpired is returned when the active code's expiry has passed.
	ErrCodeExpired = errors.New("code expired")
	// ErrCodeRateLimited is returned when code issuance exceeds the send
	// window budget.
	ErrCodeRateLimited = errors.New("code requests rate limited")
	// ErrInvalidEmail is returned when a second-factor address fails syntax
	// validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrEmailNotConfigured is returned by SendCode when no address is bound.
	ErrEmailNotConfigured = errors.New("second factor email not configured")
	// ErrNotificationDelivery reports a failed code delivery. Non-fatal: the
	// persisted code remains valid and the operator may request a resend.
	ErrNotificationDelivery = errors.New("notification delivery failed")
	// ErrWeakSecret is returned when a new PIN fails the minimum policy.
	ErrWeakSecret = errors.New("primary secret too weak")
	// ErrStoreUnavailable indicates the account backend is unreachable.
	ErrStoreUnavailable = errors.New("account backend unavailable")
	// ErrEngineNotReady is returned when the engine is missing a dependency.
	ErrEngineNotReady = errors.New("engine not initialized")
)
