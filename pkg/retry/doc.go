// Package retry re-runs operations that fail transiently, such as a feed
// server answering 503 or a connection reset mid-download.
//
// Whether an error is worth another attempt is decided by DefaultRetryIf:
// cancellation never is, pipeline errors defer to their Retryable method, and
// anything unrecognised is retried.
//
//	body, err := retry.DoWithResult(func() ([]byte, error) {
//		return get(ctx, url)
//	}, &retry.Config{
//		MaxAttempts: 2,
//		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
//		Context:     ctx,
//	})
package retry
