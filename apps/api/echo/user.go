package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/payment"
	"github.com/prochartist/backend/core/progress"
	"github.com/prochartist/backend/core/user"
)

type userApi struct {
	svc        user.ServiceInterface
	tracker    progress.TrackerInterface
	paymentSvc payment.ServiceInterface
	validate   *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, s *Server) {
	api := userApi{
		svc:        s.deps.UserSvc,
		tracker:    s.deps.Tracker,
		paymentSvc: s.deps.PaymentSvc,
		validate:   s.validate,
	}

	ug := g.Group("/users")
	ug.GET("/verify", api.verify, jwt)
	ug.GET("/me", api.me, jwt)

	// detail endpoints; "me" stands for the caller
	owner := selfOrAdminMiddleware()
	dg := ug.Group("/:userId")
	dg.GET("/progress", api.getProgress, jwt, owner)
	dg.GET("/progress/phases/:phaseId", api.phaseStatus, jwt, owner)
	dg.GET("/purchases", api.listPurchases, jwt, owner)
	dg.GET("/purchases/:phaseId", api.hasPurchased, jwt, owner)

	// progress is only ever written by its learner; anonymous reports are accepted and skipped
	self := selfOnlyMiddleware()
	dg.POST("/progress", api.updateProgress, optJWT, self)
	dg.POST("/progress/report", api.reportProgress, optJWT, self)
	dg.POST("/progress/complete", api.markCompleted, optJWT, self)
}

// softSkip turns the refusal of an anonymous progress report into a success response.
func softSkip(ctx echo.Context, err error) error {
	if errors.Cause(err) == core.ErrAuthRequired {
		return ctx.JSON(http.StatusOK, SkippedResponse{Skipped: true, Message: core.ErrAuthRequired.Error()})
	}
	return err
}

// Handlers

func (api *userApi) verify(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return ctx.JSON(http.StatusOK, VerifyResponse{Valid: true, UserID: claims.Subject, Email: claims.Email})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) getProgress(ctx echo.Context) error {
	rec, err := api.tracker.Get(ctx.Request().Context(), pathUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *userApi) phaseStatus(ctx echo.Context) error {
	status, err := api.tracker.PhaseStatus(ctx.Request().Context(), pathUserID(ctx), ctx.Param("phaseId"))
	if err != nil {
		return errors.Wrap(err, "getting phase status")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *userApi) updateProgress(ctx echo.Context) error {
	var data progress.Update
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to progress.Update")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.tracker.Apply(ctx.Request().Context(), pathUserID(ctx), data)
	if err != nil {
		return softSkip(ctx, errors.Wrap(err, "applying progress update"))
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *userApi) reportProgress(ctx echo.Context) error {
	var data ReportProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportProgressRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.tracker.ReportProgress(ctx.Request().Context(), pathUserID(ctx), data.PhaseID, data.ContentID, *data.Percentage)
	if err != nil {
		return softSkip(ctx, errors.Wrap(err, "reporting progress"))
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *userApi) markCompleted(ctx echo.Context) error {
	var data CompleteContentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteContentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.tracker.MarkCompleted(ctx.Request().Context(), pathUserID(ctx), data.PhaseID, data.ContentID)
	if err != nil {
		return softSkip(ctx, errors.Wrap(err, "marking content completed"))
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *userApi) listPurchases(ctx echo.Context) error {
	purchases, err := api.paymentSvc.ListPurchases(ctx.Request().Context(), pathUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "listing purchases")
	}
	if purchases == nil {
		purchases = []payment.Purchase{}
	}
	return ctx.JSON(http.StatusOK, purchases)
}

func (api *userApi) hasPurchased(ctx echo.Context) error {
	ok, err := api.paymentSvc.HasPurchased(ctx.Request().Context(), pathUserID(ctx), ctx.Param("phaseId"))
	if err != nil {
		return errors.Wrap(err, "checking purchase")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"hasPurchased": ok})
}
