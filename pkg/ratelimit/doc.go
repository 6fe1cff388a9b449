// Package ratelimit paces outgoing requests.
//
// Two mechanisms are provided. Pacer inserts a fixed pause after each unit of
// work, which is how the fetcher spaces continuation batches. NewPerMinute
// returns a token-bucket Limiter backed by golang.org/x/time/rate that caps the
// overall request rate of the client; it is off unless configured.
//
// Both block through a context so a shutdown signal interrupts any wait.
package ratelimit
