// Package retry provides bounded retry with pluggable backoff for remote fetches.
//
// Do runs an operation up to MaxAttempts times. Errors that RetryIf rejects are
// returned immediately; after the last retryable failure Do returns an error
// wrapping both ErrExhausted and the final cause, without waiting again.
//
// NewFetchConfig wires the thread client's policy:
//   - 429 and 403 responses: BaseDelay * 2^(attempt-1), capped at MaxDelay
//   - transport failures and 200 bodies that are not JSON: a constant NetworkDelay
//   - anything else (404, 5xx, empty bodies): no retry
//
//	cfg := retry.NewFetchConfig(appCfg.Retry, log)
//	body, err := retry.DoWithResult(ctx, func() ([]byte, error) {
//		return client.get(ctx, url)
//	}, cfg)
package retry
