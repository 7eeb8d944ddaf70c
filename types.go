package adminauth

import "time"

// AccountID is the fixed identifier of the single administrator account.
const AccountID = "admin"

// TrustLevel ranks what a session token is authorized for.
type TrustLevel uint8

const (
	// TrustPartial proves the primary secret was verified but the second
	// factor is outstanding. Not authorized for protected operations.
	TrustPartial TrustLevel = iota + 1
	// TrustFull is authorized for protected administrative operations.
	TrustFull
)

func (t TrustLevel) String() string {
	switch t {
	case TrustPartial:
		return "partial"
	case TrustFull:
		return "full"
	default:
		return "unknown"
	}
}

// SecondFactorKind tags the second-factor mechanism variants the source
// system carried. Only the email-code variant is live; the legacy time-based
// variant is recognized so stored records can be classified, never executed.
type SecondFactorKind uint8

const (
	SecondFactorEmailCode SecondFactorKind = iota
	SecondFactorLegacyTimeCode
)

// SessionToken is the value object handed to clients. The plaintext token is
// never persisted; the store keeps its SHA-256 digest.
type SessionToken struct {
	Token     string
	Trust     TrustLevel
	IssuedAt  time.Time
	ExpiresAt time.Time
	AccountID string
}

// PrimaryResult is returned by [Engine.VerifyPrimary].
type PrimaryResult struct {
	// SecondFactorRequired tells the client whether a code verification must
	// follow before the session is useful for protected operations.
	SecondFactorRequired bool
	// SecondFactorEmail is the bound destination, for display only.
	SecondFactorEmail string
	Session           SessionToken
}

// SecondFactorStatus is returned by [Engine.SecondFactorStatus].
type SecondFactorStatus struct {
	Enabled      bool
	Email        string
	PendingEmail string
}

// SendCodeResult is returned by [Engine.SendCode]. Delivered=false means the
// gateway call failed; the code is already persisted and stays valid, so the
// caller may surface a warning and offer a resend.
type SendCodeResult struct {
	Destination string
	ExpiresIn   time.Duration
	Delivered   bool
}

// VerifyCodeResult carries the escalated Full-trust session.
type VerifyCodeResult struct {
	Session SessionToken
	// SecondFactorActivated is true when this verification confirmed a newly
	// bound address and flipped the factor on.
	SecondFactorActivated bool
}

// SessionInfo is returned by [Engine.Validate] for middleware consumption.
type SessionInfo struct {
	AccountID string
	Trust     TrustLevel
	IssuedAt  time.Time
	ExpiresAt time.Time
}
