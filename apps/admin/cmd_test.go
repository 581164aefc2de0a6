package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/user"
	emailsvc "github.com/prochartist/backend/services/email"
	inmemdb "github.com/prochartist/backend/storage/database/inmem"
	"github.com/prochartist/backend/testutil"
)

var usrRepo user.Repository

func setup(t *testing.T, db *sql.DB) *commandLine {
	conf := core.NewTestConfig()
	logger = testutil.NewLogger(conf)

	// set up DB & repos
	mem := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(mem)
	mailSvc := emailsvc.NewConsoleServiceMock(logger, conf)

	// start CLI
	return &commandLine{
		db:         db,
		usrSvc:     user.NewService(usrRepo, inmemdb.NewOTPStore(mem), mailSvc, conf),
		catalogSvc: catalog.NewService(inmemdb.NewPhaseRepository(mem)),
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t, new(sql.DB))

	var ran []string
	runMigrationsFunc = func(ctx context.Context, db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "payments_index", "sql"}},
	}
	runCLITests(t, cli, tests)
	assert.Equal(t, []string{"up", "up-by-one", "up-to", "down", "down-to", "redo", "status", "create"}, ran)

	t.Run("not postgres", func(t *testing.T) {
		cli := setup(t, nil)
		assert.Equal(t, errNotPostgres, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t, nil)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "trader@test.in"}, wantErr: errHelp},
		{name: "learner", args: []string{"adduser", "-email", "Trader@test.in"}, pwd: "pwd1"},
		{name: "promote to admin", args: []string{"adduser", "-email", "trader@test.in", "-admin"}, pwd: "pwd2"},
	}
	runCLITests(t, cli, tests)

	usr, err := usrRepo.GetUserByEmail(ctx, "trader@test.in")
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsLearner())
	assert.True(t, usr.IsAdmin())
	assert.True(t, usr.IsMasterAdmin())
	assert.NoError(t, usr.CheckPassword("pwd2"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t, nil)
	usr := testutil.CreateUser(t, usrRepo, "User", "awe@test.in", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.in"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.in"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@test.in"}, pwd: "lmao"},
	}
	runCLITests(t, cli, tests)

	refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Error(t, refreshed.CheckPassword("mdr"))
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_seedPhases(t *testing.T) {
	cli := setup(t, nil)

	require.NoError(t, cli.run([]string{"admin", "seedphases"}))
	phases, err := cli.catalogSvc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, phases, len(catalog.DefaultPhases()))

	// seeding again keeps existing phases
	require.NoError(t, cli.run([]string{"admin", "seedphases"}))
	phases, err = cli.catalogSvc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, phases, len(catalog.DefaultPhases()))
}
