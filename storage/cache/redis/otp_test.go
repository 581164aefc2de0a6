package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/user"
)

// requires a running redis server: REDIS_TEST_ADDR=localhost:6379
func TestOTPStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	conf := core.NewTestConfig()
	conf.Redis.Addr = addr
	conf.Database.Name = "prochartist_test"

	ctx := context.Background()
	rdb, err := Open(ctx, conf)
	require.NoError(t, err)
	defer rdb.Close()

	store := NewOTPStore(rdb, conf)
	key := "otp:password:jd@x.com"
	defer store.DeleteOTP(ctx, key)

	_, err = store.GetOTP(ctx, key)
	assert.Equal(t, user.ErrOTPNotFound, err)

	require.NoError(t, store.SaveOTP(ctx, key, "123456", time.Minute))
	code, err := store.GetOTP(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	require.NoError(t, store.SaveOTP(ctx, key, "654321", time.Minute))
	code, _ = store.GetOTP(ctx, key)
	assert.Equal(t, "654321", code)

	require.NoError(t, store.DeleteOTP(ctx, key))
	_, err = store.GetOTP(ctx, key)
	assert.Equal(t, user.ErrOTPNotFound, err)
}
