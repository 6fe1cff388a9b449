// Package reddit is a small client for the public JSON API: the thread
// comments listing and the morechildren continuation endpoint.
//
// Every request passes through an optional per-minute limiter and the retry
// policy from package retry. Non-200 responses become typed errors from
// package errors, so callers can tell a missing thread (not_found) from a
// struggling server (server_error) without parsing messages.
package reddit
