package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/user"
)

const dialTimeout = 5 * time.Second

// Open connects to the redis server of conf and pings it.
func Open(ctx context.Context, conf *core.Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Redis.Addr,
		Password:    conf.Redis.Password,
		DB:          conf.Redis.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

// otpStore keeps one-time passwords as expiring redis keys.
type otpStore struct {
	rdb    goredis.Cmdable
	prefix string
}

var _ user.OTPStore = (*otpStore)(nil)

func NewOTPStore(rdb goredis.Cmdable, conf *core.Config) *otpStore {
	return &otpStore{rdb: rdb, prefix: conf.Database.Name + ":"}
}

func (s *otpStore) SaveOTP(ctx context.Context, key, code string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.prefix+key, code, ttl).Err(); err != nil {
		return core.NewStorageError("saving otp", err)
	}
	return nil
}

func (s *otpStore) GetOTP(ctx context.Context, key string) (string, error) {
	code, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", user.ErrOTPNotFound
		}
		return "", core.NewStorageError("getting otp", err)
	}
	return code, nil
}

func (s *otpStore) DeleteOTP(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return core.NewStorageError("deleting otp", err)
	}
	return nil
}
