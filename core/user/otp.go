package user

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
)

// OTP scopes
const (
	OTPScopePassword = "password" // learner credential recovery
	OTPScopeAdmin    = "admin"    // admin credential recovery
	OTPScopeEmail    = "email"    // plain email ownership check
)

var (
	ErrOTPNotFound = errors.New("otp not found")
	ErrInvalidOTP  = core.NewValidationError(
		errors.New("invalid or expired OTP"),
		core.FieldError{Field: "otp", Error: "invalid or expired OTP"},
	)

	otpRandReader io.Reader = rand.Reader // mockable
)

// OTPStore keeps one-time passwords until they expire.
type OTPStore interface {
	// SaveOTP stores code under key, replacing any previous code. The code expires after ttl.
	SaveOTP(ctx context.Context, key, code string, ttl time.Duration) error
	// GetOTP returns ErrOTPNotFound if there is no unexpired code under key.
	GetOTP(ctx context.Context, key string) (string, error)
	DeleteOTP(ctx context.Context, key string) error
}

func otpKey(scope, email string) string {
	return "otp:" + scope + ":" + strings.ToLower(email)
}

// GenerateOTP returns a random numeric code of the given length, without a leading zero.
func GenerateOTP(length int) (string, error) {
	if length < 4 {
		length = 4
	}
	var sb strings.Builder
	for i := 0; i < length; i++ {
		lo, span := int64(0), int64(10)
		if i == 0 {
			lo, span = 1, 9
		}
		n, err := rand.Int(otpRandReader, big.NewInt(span))
		if err != nil {
			return "", errors.Wrap(err, "generating otp")
		}
		sb.WriteByte(byte('0' + lo + n.Int64()))
	}
	return sb.String(), nil
}
