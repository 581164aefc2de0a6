package echoapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/progress"
	"github.com/prochartist/backend/core/user"
)

const (
	errNoPermsToSetRoles = "not enough rights to set these roles"
	msgOTPSent           = "If the email address supplied is associated with an account, an OTP has been sent to it."
)

type accountApi struct {
	conf       *core.Config
	logger     core.Logger
	auth       *Auth
	svc        user.ServiceInterface
	tracker    progress.TrackerInterface
	catalogSvc catalog.ServiceInterface
	validate   *validator.Validate
}

func newAccountApi(s *Server) *accountApi {
	return &accountApi{
		conf:       s.conf,
		logger:     s.logger,
		auth:       s.auth,
		svc:        s.deps.UserSvc,
		tracker:    s.deps.Tracker,
		catalogSvc: s.deps.CatalogSvc,
		validate:   s.validate,
	}
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := newAccountApi(s)

	ag := g.Group("/auth")
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/forgot-password", api.sendOTP(user.OTPScopePassword))
	ag.POST("/send-otp", api.sendOTP(""))
	ag.POST("/verify-otp", api.verifyOTP(""))
	ag.POST("/reset-password-with-otp", api.resetPasswordWithOTP(user.OTPScopePassword))
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := newAccountApi(s)

	ag := g.Group("/admin")

	// un-authed endpoints
	ag.POST("/login", api.adminLogin)
	ag.POST("/reset", api.resetAdmins)
	ag.GET("/validate-master-link/:token", api.validateMasterLink)
	ag.POST("/send-otp", api.sendOTP(user.OTPScopeAdmin))
	ag.POST("/verify-otp", api.verifyOTP(user.OTPScopeAdmin))
	ag.POST("/reset-password-with-otp", api.resetPasswordWithOTP(user.OTPScopeAdmin))

	// authed endpoints
	dg := ag.Group("", jwt, adminMiddleware())
	dg.GET("/users", api.queryUsers)
	dg.POST("/users", api.createUser)
	dg.GET("/roles", api.queryRoles)
	dg.POST("/seed-phases", api.seedPhases)
}

// Handlers

func (api *accountApi) issueToken(ctx echo.Context, code int, usr user.User, claims *Claims) error {
	token, err := api.auth.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, TokenResponse{Token: token, User: &usr})
}

func (api *accountApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Signup(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	// every learner starts with the free phase unlocked
	if _, err = api.tracker.Get(reqCtx, usr.ID); err != nil {
		return errors.Wrap(err, "creating progress record")
	}
	return api.issueToken(ctx, http.StatusCreated, usr, api.auth.UserClaims(usr))
}

func (api *accountApi) login(ctx echo.Context) error {
	return api.doLogin(ctx, false)
}

func (api *accountApi) adminLogin(ctx echo.Context) error {
	return api.doLogin(ctx, true)
}

func (api *accountApi) doLogin(ctx echo.Context, adminOnly bool) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, claims, err := api.auth.authenticate(ctx.Request().Context(), data.Email, data.Password, adminOnly, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.issueToken(ctx, http.StatusOK, usr, claims)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

// sendOTP returns a handler requesting a one-time password in scope.
// An empty scope lets the request pick between the password and email scopes.
func (api *accountApi) sendOTP(scope string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data OTPRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to OTPRequest")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}
		scope := scope
		if scope == "" {
			scope = data.Purpose
		}

		if err := api.svc.RequestOTP(ctx.Request().Context(), scope, data.Email); err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return errors.Wrap(err, "requesting otp")
			}
			// do not tell attackers which emails are registered
			api.logger.Info("otp requested for unknown email", "scope", scope, "email", data.Email)
		}
		return ctx.JSON(http.StatusOK, MessageResponse{Message: msgOTPSent})
	}
}

func (api *accountApi) verifyOTP(scope string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data VerifyOTPRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to VerifyOTPRequest")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}
		scope := scope
		if scope == "" {
			scope = data.Purpose
		}

		// email ownership checks end here; recovery codes are kept for the reset step
		consume := scope == user.OTPScopeEmail
		if err := api.svc.VerifyOTP(ctx.Request().Context(), scope, data.Email, data.OTP, consume); err != nil {
			return errors.Wrap(err, "verifying otp")
		}
		return ctx.JSON(http.StatusOK, MessageResponse{Message: "OTP verified successfully"})
	}
}

func (api *accountApi) resetPasswordWithOTP(scope string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data user.ResetPasswordWithOTP
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to ResetPasswordWithOTP")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		if _, err := api.svc.ResetPasswordWithOTP(ctx.Request().Context(), scope, data); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return user.ErrInvalidOTP
			}
			return errors.Wrap(err, "resetting password with otp")
		}
		return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset successfully."})
	}
}

func (api *accountApi) isMasterToken(token string) bool {
	master := api.conf.MasterLinkToken
	return master != "" && subtle.ConstantTimeCompare([]byte(token), []byte(master)) == 1
}

func (api *accountApi) validateMasterLink(ctx echo.Context) error {
	if !api.isMasterToken(ctx.Param("token")) {
		return errInvalidMasterLink
	}
	return ctx.JSON(http.StatusOK, echo.Map{"valid": true})
}

func (api *accountApi) resetAdmins(ctx echo.Context) error {
	var data AdminResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if !api.isMasterToken(data.Token) {
		return errInvalidMasterLink
	}

	usr, err := api.svc.ResetAdmins(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "resetting admins")
	}
	api.logger.Warn("admin accounts reset", usr)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Admin credentials have been reset."})
}

func (api *accountApi) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}

	users, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *accountApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	if _, err = api.tracker.Get(reqCtx, usr.ID); err != nil {
		return errors.Wrap(err, "creating progress record")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *accountApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *accountApi) seedPhases(ctx echo.Context) error {
	n, err := api.catalogSvc.Seed(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "seeding phases")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"created": n})
}
