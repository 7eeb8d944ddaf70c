// Package middleware exposes HTTP middleware adapters that enforce session
// trust levels on top of adminauth.Engine validation.
//
// # Guards
//
//   - [Guard]: enforces a caller-chosen minimum trust level.
//   - [RequirePartial]: any valid session, including pre-second-factor ones.
//   - [RequireFull]: fully authenticated sessions only.
//
// Each guard reads the Authorization header, calls Engine.Validate, and
// injects the validated session info into the request context.
//
// # What this package must NOT do
//
//   - Inspect or decode tokens itself (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Distinguish failure causes in responses; every rejection is a
//     generic 401.
package middleware
