package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/user"
	emailsvc "github.com/prochartist/backend/services/email"
	logsvc "github.com/prochartist/backend/services/logger"
	"github.com/prochartist/backend/storage/database"
	inmemdb "github.com/prochartist/backend/storage/database/inmem"
	mongorepos "github.com/prochartist/backend/storage/database/mongodb"
	sqlxrepos "github.com/prochartist/backend/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	rbLogger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	rbLogger.Enable(false)
	logger = rbLogger

	// set up DB
	cli, closeDB, err := newCommandLine(conf)
	if err != nil {
		logger.Fatal("setting up database", err)
	}

	// start CLI
	err = cli.run(os.Args)
	closeDB()
	rbLogger.Sync()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

// newCommandLine connects to the configured database without applying migrations.
func newCommandLine(conf *core.Config) (*commandLine, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	var (
		db        *sql.DB
		usrRepo   user.Repository
		phaseRepo catalog.Repository
		closeDB   = func() {}
	)
	switch conf.Database.Engine {
	case core.DBEngineMongo:
		client, mdb, err := mongorepos.Open(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		usrRepo = mongorepos.NewUserRepository(mdb, conf)
		phaseRepo = mongorepos.NewPhaseRepository(mdb, conf)
		closeDB = func() { _ = client.Disconnect(context.Background()) }

	case core.DBEnginePostgres:
		xdb, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		db = xdb.DB
		usrRepo = sqlxrepos.NewUserRepository(xdb, conf)
		phaseRepo = sqlxrepos.NewPhaseRepository(xdb, conf)
		closeDB = func() { _ = xdb.Close() }

	case core.DBEngineMemory:
		mem := inmemdb.Open()
		usrRepo = inmemdb.NewUserRepository(mem)
		phaseRepo = inmemdb.NewPhaseRepository(mem)

	default:
		return nil, nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	mailSvc := emailsvc.NewConsoleService(logger, conf)
	cli := &commandLine{
		db:         db,
		usrSvc:     user.NewService(usrRepo, inmemdb.NewOTPStore(inmemdb.Open()), mailSvc, conf),
		catalogSvc: catalog.NewService(phaseRepo),
	}
	return cli, closeDB, nil
}
