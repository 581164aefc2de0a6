package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
	"github.com/prochartist/backend/core/media"
)

type applicationApi struct {
	svc      application.ServiceInterface
	uploader media.UploaderInterface
	validate *validator.Validate
}

func registerApplicationAPI(g *echo.Group, jwt, optJWT, admin echo.MiddlewareFunc, s *Server) {
	api := applicationApi{
		svc:      s.deps.ApplicationSvc,
		uploader: s.deps.Uploader,
		validate: s.validate,
	}

	ag := g.Group("/applicationsByDate")
	ag.POST("", api.submit, optJWT)
	ag.GET("/mine", api.retrieveOwn, jwt)

	// admin endpoints
	adm := []echo.MiddlewareFunc{jwt, admin}
	ag.GET("", api.listByDate, adm...)
	ag.GET("/dates", api.listDates, adm...)
	ag.PUT("/:appId", api.transition, adm...)
	ag.DELETE("/:appId", api.destroy, adm...)
}

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// Handlers

// submit accepts either a JSON body or a multipart form carrying the screenshot under "image".
func (api *applicationApi) submit(ctx echo.Context) error {
	var data application.NewApplication
	multipart := isMultipart(ctx)
	if multipart {
		data = application.NewApplication{
			LeagueDate: ctx.FormValue("date"),
			Name:       ctx.FormValue("name"),
			Mobile:     ctx.FormValue("mobile"),
			Email:      ctx.FormValue("email"),
			UserID:     ctx.FormValue("userId"),
		}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if data.UserID == "" {
		data.UserID = contextUserID(ctx)
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if multipart {
		url, err := formFileUpload(ctx, api.uploader, media.KindImage, "image")
		if err != nil {
			return err
		}
		if url != "" {
			data.ImageURL = url
		}
	}

	app, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) retrieveOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	app, err := api.svc.GetForUser(ctx.Request().Context(), ctx.QueryParam("date"), claims.Email)
	if err != nil {
		return errors.Wrap(err, "getting own application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) listByDate(ctx echo.Context) error {
	parts, err := api.svc.ListByDate(ctx.Request().Context(), ctx.QueryParam("date"))
	if err != nil {
		return errors.Wrap(err, "listing applications")
	}
	return ctx.JSON(http.StatusOK, parts)
}

func (api *applicationApi) listDates(ctx echo.Context) error {
	dates, err := api.svc.ListDates(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing league dates")
	}
	return ctx.JSON(http.StatusOK, dates)
}

func (api *applicationApi) transition(ctx echo.Context) error {
	var data application.Transition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Transition")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	// an omitted reason is not an empty one
	if data.RejectionReason == nil && strings.EqualFold(strings.TrimSpace(data.Status), application.StatusRejected) {
		data.RejectionReason = core.StringPtr(application.NoReasonPlaceholder)
	}

	app, err := api.svc.Transition(ctx.Request().Context(), ctx.Param("appId"), data)
	if err != nil {
		return errors.Wrap(err, "transitioning application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("appId")); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Application deleted successfully"})
}
