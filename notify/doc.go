// Package notify defines the gateway used to deliver one-time codes out of
// band, and an SMTP implementation of it.
//
// The engine persists a code before any Send call and treats delivery failure
// as non-fatal, so implementations may be retried safely with the same code.
package notify
