package dig_container

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/prochartist/backend/apps/api/echo"
	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/league"
	"github.com/prochartist/backend/core/media"
	"github.com/prochartist/backend/core/payment"
	"github.com/prochartist/backend/core/progress"
	"github.com/prochartist/backend/core/user"
	"github.com/prochartist/backend/core/video"
	emailsvc "github.com/prochartist/backend/services/email"
	"github.com/prochartist/backend/services/filestore"
	logsvc "github.com/prochartist/backend/services/logger"
	paymentsvc "github.com/prochartist/backend/services/payment"
	rediscache "github.com/prochartist/backend/storage/cache/redis"
	"github.com/prochartist/backend/storage/database"
	inmemdb "github.com/prochartist/backend/storage/database/inmem"
	mongorepos "github.com/prochartist/backend/storage/database/mongodb"
	sqlxrepos "github.com/prochartist/backend/storage/database/sqlx"
)

type (
	// Closer releases a connection at shutdown.
	Closer func(ctx context.Context) error

	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Storage holds the repositories of the configured database engine.
	Storage struct {
		dig.Out

		Users        user.Repository
		Progress     progress.Repository
		Phases       catalog.Repository
		Videos       video.Repository
		Applications application.Repository
		League       league.Repository
		Payments     payment.Repository
		Closer       Closer `name:"dbCloser"`
	}

	OTPCache struct {
		dig.Out

		Store  user.OTPStore
		Closer Closer `name:"cacheCloser"`
	}

	Files struct {
		dig.Out

		Store      core.FileStorage
		UploadsDir string `name:"uploadsDir"`
	}

	// Closers are run, in order, once the server stopped.
	Closers struct {
		dig.In

		DB    Closer `name:"dbCloser"`
		Cache Closer `name:"cacheCloser"`
	}

	DepsParam struct {
		dig.In

		UserSvc        user.ServiceInterface
		Tracker        progress.TrackerInterface
		CatalogSvc     catalog.ServiceInterface
		VideoSvc       video.ServiceInterface
		ApplicationSvc application.ServiceInterface
		LeagueSvc      league.ServiceInterface
		PaymentSvc     payment.ServiceInterface
		Uploader       media.UploaderInterface
		UploadsDir     string `name:"uploadsDir"`
	}
)

func newNamedLogger(name string, conf *core.Config) core.Logger {
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("building %s logger: %v", name, err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named(name), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newNamedLogger("api", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return newNamedLogger("db", conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	switch conf.Database.Engine {
	case core.DBEngineMongo:
		client, db, err := mongorepos.Open(ctx, conf)
		if err != nil {
			loggerParam.Logger.Fatal("setting up database", err)
		}
		return Storage{
			Users:        mongorepos.NewUserRepository(db, conf),
			Progress:     mongorepos.NewProgressRepository(db, conf),
			Phases:       mongorepos.NewPhaseRepository(db, conf),
			Videos:       mongorepos.NewVideoRepository(db, conf),
			Applications: mongorepos.NewApplicationRepository(db, conf),
			League:       mongorepos.NewLeagueRepository(db, conf),
			Payments:     mongorepos.NewPaymentRepository(db, conf),
			Closer:       client.Disconnect,
		}

	case core.DBEnginePostgres:
		setUp := func() (*sqlx.DB, error) {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}
			db, err := database.Open(conf)
			if err != nil {
				return nil, err
			}
			if err = database.Migrate(ctx, db.DB); err != nil {
				_ = db.Close()
				return nil, err
			}
			return db, nil
		}
		db, err := setUp()
		if err != nil {
			loggerParam.Logger.Fatal("setting up database", err)
		}
		return Storage{
			Users:        sqlxrepos.NewUserRepository(db, conf),
			Progress:     sqlxrepos.NewProgressRepository(db, conf),
			Phases:       sqlxrepos.NewPhaseRepository(db, conf),
			Videos:       sqlxrepos.NewVideoRepository(db, conf),
			Applications: sqlxrepos.NewApplicationRepository(db, conf),
			League:       sqlxrepos.NewLeagueRepository(db, conf),
			Payments:     sqlxrepos.NewPaymentRepository(db, conf),
			Closer:       func(context.Context) error { return db.Close() },
		}

	case core.DBEngineMemory:
		loggerParam.Logger.Warn("using the in-memory database: data is lost on restart")
		db := inmemdb.Open()
		return Storage{
			Users:        inmemdb.NewUserRepository(db),
			Progress:     inmemdb.NewProgressRepository(db),
			Phases:       inmemdb.NewPhaseRepository(db),
			Videos:       inmemdb.NewVideoRepository(db),
			Applications: inmemdb.NewApplicationRepository(db),
			League:       inmemdb.NewLeagueRepository(db),
			Payments:     inmemdb.NewPaymentRepository(db),
			Closer:       func(context.Context) error { return nil },
		}
	}

	loggerParam.Logger.Fatal("unknown database engine " + conf.Database.Engine)
	return Storage{}
}

func newOTPCache(conf *core.Config, logger core.Logger) OTPCache {
	if conf.Redis.Addr == "" {
		return OTPCache{
			Store:  inmemdb.NewOTPStore(inmemdb.Open()),
			Closer: func(context.Context) error { return nil },
		}
	}

	rdb, err := rediscache.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal("setting up redis", err)
	}
	return OTPCache{
		Store:  rediscache.NewOTPStore(rdb, conf),
		Closer: func(context.Context) error { return rdb.Close() },
	}
}

func newFiles(conf *core.Config, logger core.Logger) Files {
	if conf.Storage.Driver == core.StorageDriverS3 {
		store, err := filestore.NewS3Storage(context.Background(), conf)
		if err != nil {
			logger.Fatal("setting up s3 storage", err)
		}
		return Files{Store: store}
	}
	store := filestore.NewLocalStorage(conf)
	return Files{Store: store, UploadsDir: store.Dir()}
}

func newGateway(conf *core.Config) payment.Gateway {
	if conf.Payment.Gateway == paymentsvc.GatewayRazorpay {
		return paymentsvc.NewRazorpay(conf)
	}
	return paymentsvc.NewDummy(conf)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newDeps(p DepsParam) *echoapi.Deps {
	return &echoapi.Deps{
		UserSvc:        p.UserSvc,
		Tracker:        p.Tracker,
		CatalogSvc:     p.CatalogSvc,
		VideoSvc:       p.VideoSvc,
		ApplicationSvc: p.ApplicationSvc,
		LeagueSvc:      p.LeagueSvc,
		PaymentSvc:     p.PaymentSvc,
		Uploader:       p.Uploader,
		UploadsDir:     p.UploadsDir,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newOTPCache))
	must(c.Provide(newFiles))
	must(c.Provide(newGateway))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(catalog.NewService, dig.As(
		new(catalog.ServiceInterface),
		new(progress.PhaseFinder),
		new(payment.PhaseFinder),
	)))
	must(c.Provide(progress.NewTracker, dig.As(new(progress.TrackerInterface), new(payment.PhaseUnlocker))))
	must(c.Provide(payment.NewService, dig.As(new(payment.ServiceInterface))))
	must(c.Provide(video.NewService, dig.As(new(video.ServiceInterface))))
	must(c.Provide(application.NewService, dig.As(new(application.ServiceInterface))))
	must(c.Provide(league.NewService, dig.As(new(league.ServiceInterface))))
	must(c.Provide(media.NewUploader, dig.As(new(media.UploaderInterface))))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
