package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	dig_container "github.com/prochartist/backend/apps/api/di/dig"
	echoapi "github.com/prochartist/backend/apps/api/echo"
	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/user"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		closers dig_container.Closers,
		validate *validator.Validate,
		translator ut.Translator,
		usrSvc user.ServiceInterface,
		catalogSvc catalog.ServiceInterface,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)

		core.ParseEmailTemplates(apiLogger, conf)

		user.LoadCommonPasswords(apiLogger)

		defer func() {
			if s, ok := apiLogger.(interface{ Sync() }); ok {
				s.Sync()
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()
			if err := closers.Cache(ctx); err != nil {
				apiLogger.Error("failed to close cache", err)
			}
			if err := closers.DB(ctx); err != nil {
				apiLogger.Error("failed to close database", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		bootstrap(conf, apiLogger, usrSvc, catalogSvc)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.NewString("dbEngine").Set(conf.Database.Engine)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service

		go func() {
			apiLogger.Info("API listening on " + conf.Server.Address)
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

// bootstrap seeds the default curriculum and the default admin account.
func bootstrap(conf *core.Config, logger core.Logger, usrSvc user.ServiceInterface, catalogSvc catalog.ServiceInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	n, err := catalogSvc.Seed(ctx)
	if err != nil {
		logger.Error("seeding learning phases", err)
	} else if n > 0 {
		logger.Info(fmt.Sprintf("seeded %d learning phases", n))
	}

	if conf.DefaultAdmin.Email == "" || conf.DefaultAdmin.Password == "" {
		return
	}
	if _, err = usrSvc.GetByEmail(ctx, conf.DefaultAdmin.Email); err == nil {
		return
	} else if !core.IsNotFound(err) {
		logger.Error("looking up default admin", err)
		return
	}
	if _, err = usrSvc.SaveAdmin(ctx, conf.DefaultAdmin.Email, conf.DefaultAdmin.Password); err != nil {
		logger.Error("creating default admin", err)
		return
	}
	logger.Info("default admin created: " + conf.DefaultAdmin.Email)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
