// Package api exposes the administrator authentication flow over HTTP.
//
// The surface is deliberately narrow: PIN verification, second-factor setup
// and verification, logout, and PIN change. Protected business endpoints live
// elsewhere and gate themselves with the middleware package.
//
// Failure responses are generic. An invalid PIN, a locked account, and a
// stale session all read the same from the outside; the precise cause goes
// to the audit sink and the structured log only.
package api
