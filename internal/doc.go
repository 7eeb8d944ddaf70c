// Package internal contains helper utilities that are intentionally private
// to the adminauth module: secure random token and one-time-code generation
// plus digest helpers.
//
// # Sub-packages
//
//   - limiters: lockout policy constants and the send-code throttle
//   - stores: the Redis-backed administrator account record
//
// # What this package must NOT do
//
//   - Export types that appear in the public adminauth API.
//   - Be imported by any package outside this module.
package internal
