package generic

import (
	"context"
	"time"
)

// RetryPolicy is a fixed attempt count with a fixed delay between attempts.
// Used for page-level loads only; the ledger and discount derivations never
// retry on their own.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy matches the page loaders: three tries, one second apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds or attempts run out. Client and
// not-found errors are returned at once, as is ctx's error once it is done.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		zero T
		err  error
	)
	for i := 0; i < attempts; i++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if i == attempts-1 || IsClientError(err) || IsNotFound(err) {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return zero, err
}
