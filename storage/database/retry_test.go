package database

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/prochartist/backend/core"
)

var errFlaky = errors.New("connection reset")

func isFlaky(err error) bool { return err == errFlaky }

func TestRetrier_Do(t *testing.T) {
	orig := retryBaseDelay
	retryBaseDelay = time.Millisecond
	defer func() { retryBaseDelay = orig }()
	ctx := context.Background()

	tests := []struct {
		name        string
		failures    int
		err         error
		wantCalls   int
		wantStorage bool
		wantErr     error
	}{
		{name: "ok", wantCalls: 1},
		{name: "recovers", failures: 2, err: errFlaky, wantCalls: 3},
		{name: "gives up", failures: 10, err: errFlaky, wantCalls: 4, wantStorage: true},
		{name: "permanent", failures: 10, err: core.ErrAuthRequired, wantCalls: 1, wantErr: core.ErrAuthRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			err := NewRetrier(3, isFlaky).Do(ctx, "saving", func(ctx context.Context) error {
				calls++
				if calls <= tt.failures {
					return errors.Wrap(tt.err, "query")
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			switch {
			case tt.wantStorage:
				assert.True(t, core.IsStorage(err), err)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			default:
				assert.NoError(t, err)
			}
		})
	}

	t.Run("no retries", func(t *testing.T) {
		var calls int
		err := NewRetrier(-1, isFlaky).Do(ctx, "saving", func(ctx context.Context) error {
			calls++
			return errFlaky
		})
		assert.Equal(t, 1, calls)
		assert.True(t, core.IsStorage(err), err)
	})
}
