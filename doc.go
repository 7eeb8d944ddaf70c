// Package adminauth implements the administrator authentication core for the
// clinic CRM: a primary PIN check, an optional email-delivered one-time-code
// second factor, session trust escalation, and brute-force lockout.
//
// The system models exactly one administrator account, persisted as a single
// Redis hash and mutated only through atomic scripts, so the design stays
// correct under multiple server instances.
//
// # Flow
//
// A client first calls [Engine.VerifyPrimary] with the shared PIN. On success
// it receives a Partial session token. If the second factor is enabled the
// client requests a code with [Engine.SendCode] and confirms it with
// [Engine.VerifyCode], which escalates the session to Full trust. Protected
// admin endpoints gate on [Engine.Validate] with [TrustFull].
//
// Second-factor enablement is deferred: binding an email address via
// [Engine.BindSecondFactorEmail] only stages it, and the factor turns on at
// the first successful code verification. A mistyped address therefore can
// never lock the operator out.
//
// # Trust levels
//
//   - [TrustPartial]: primary secret verified, second factor outstanding.
//     Accepted only by the second-factor endpoints.
//   - [TrustFull]: authorized for protected administrative operations.
//
// All timestamps are stored and compared as unix seconds (UTC by
// construction). Session tokens are opaque 256-bit random strings; only
// their SHA-256 digests are persisted and all comparisons are constant-time.
package adminauth
