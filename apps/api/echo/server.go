package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/league"
	"github.com/prochartist/backend/core/media"
	"github.com/prochartist/backend/core/payment"
	"github.com/prochartist/backend/core/progress"
	"github.com/prochartist/backend/core/user"
	"github.com/prochartist/backend/core/video"
)

type (
	// Deps are the services the API is served from.
	Deps struct {
		UserSvc        user.ServiceInterface
		Tracker        progress.TrackerInterface
		CatalogSvc     catalog.ServiceInterface
		VideoSvc       video.ServiceInterface
		ApplicationSvc application.ServiceInterface
		LeagueSvc      league.ServiceInterface
		PaymentSvc     payment.ServiceInterface
		Uploader       media.UploaderInterface
		// UploadsDir is served under /uploads when files are stored on local disk.
		UploadsDir string
	}

	Server struct {
		conf       *core.Config
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		deps       *Deps
		auth       *Auth
		app        *echo.Echo
		errors     chan error
		shutdown   chan os.Signal
	}
)

func NewServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	deps *Deps,
) *Server {
	s := &Server{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		deps:       deps,
		auth:       NewAuth(conf),
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.conf.Server.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if s.conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(s.conf.Server.BodyLimit))
	}
	if s.conf.Server.RequestTimeout > 0 {
		s.app.Use(requestTimeoutMiddleware(s.conf.Server.RequestTimeout))
	}

	s.app.GET("/", home)
	if s.deps.UploadsDir != "" {
		s.app.Static("/uploads", s.deps.UploadsDir)
	}

	g := s.app.Group("/api")
	jwt := s.auth.Required()
	optJWT := s.auth.Optional()
	admin := adminMiddleware()

	registerAuthAPI(g, jwt, s)
	registerAdminAPI(g, jwt, s)
	registerUserAPI(g, jwt, optJWT, s)
	registerCatalogAPI(g, jwt, admin, s)
	registerVideoAPI(g, jwt, admin, s)
	registerLeagueAPI(g, jwt, admin, s)
	registerApplicationAPI(g, jwt, optJWT, admin, s)
	registerPaymentAPI(g, jwt, s)
}

func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors reports the failure of the listener.
func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the process to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Auth() *Auth {
	return s.auth
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Pro Chartist API!")
}
