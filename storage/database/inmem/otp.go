package inmemdb

import (
	"context"
	"time"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/user"
)

// otpStore keeps one-time passwords in process memory. Used when no redis server is configured.
type otpStore struct {
	db *otpTable
}

var _ user.OTPStore = (*otpStore)(nil)

func NewOTPStore(db *DB) *otpStore {
	return &otpStore{db: db.otp}
}

func (s *otpStore) SaveOTP(_ context.Context, key, code string, ttl time.Duration) error {
	s.db.Lock()
	defer s.db.Unlock()
	s.db.table[key] = otpEntry{code: code, expiresAt: core.NowFunc().Add(ttl)}
	return nil
}

func (s *otpStore) GetOTP(_ context.Context, key string) (string, error) {
	s.db.Lock()
	defer s.db.Unlock()

	entry, ok := s.db.table[key]
	if !ok {
		return "", user.ErrOTPNotFound
	}
	if !core.NowFunc().Before(entry.expiresAt) {
		delete(s.db.table, key)
		return "", user.ErrOTPNotFound
	}
	return entry.code, nil
}

func (s *otpStore) DeleteOTP(_ context.Context, key string) error {
	s.db.Lock()
	defer s.db.Unlock()
	delete(s.db.table, key)
	return nil
}
