package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"

	"github.com/prochartist/backend/core"
)

var retryBaseDelay = 50 * time.Millisecond // mockable

// Retrier re-runs storage operations that failed with a transient error.
type Retrier struct {
	maxRetries  uint64
	isTransient func(error) bool
}

// NewRetrier returns a Retrier allowing maxRetries extra attempts for the errors isTransient accepts.
func NewRetrier(maxRetries int, isTransient func(error) bool) Retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return Retrier{maxRetries: uint64(maxRetries), isTransient: isTransient}
}

// Do runs fn with exponential backoff between attempts.
// A transient error still failing after the last attempt is returned as a core.StorageError.
func (r Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && r.isTransient != nil && r.isTransient(errors.Cause(err)) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && r.isTransient != nil && r.isTransient(errors.Cause(err)) {
		return core.NewStorageError(op, err)
	}
	return err
}
