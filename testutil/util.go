package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/user"
	logsvc "github.com/prochartist/backend/services/logger"
)

// NewLogger returns a logger that reports nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop(), conf)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{user.RoleLearner}
	}
	usr := user.User{
		ID:        "usr-" + email,
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
