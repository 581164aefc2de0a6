package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core/league"
)

type leagueApi struct {
	svc      league.ServiceInterface
	validate *validator.Validate
}

func registerLeagueAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := leagueApi{
		svc:      s.deps.LeagueSvc,
		validate: s.validate,
	}

	lg := g.Group("/league")
	lg.GET("", api.retrieve)
	lg.PUT("", api.update, jwt, admin)
	lg.GET("/topTraders", api.topTraders)
	lg.PUT("/topTraders", api.updateTopTraders, jwt, admin)
}

// Handlers

func (api *leagueApi) retrieve(ctx echo.Context) error {
	lg, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting league")
	}
	return ctx.JSON(http.StatusOK, lg)
}

func (api *leagueApi) update(ctx echo.Context) error {
	var data league.UpdateLeague
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLeague")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lg, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating league")
	}
	return ctx.JSON(http.StatusOK, lg)
}

func (api *leagueApi) topTraders(ctx echo.Context) error {
	traders, err := api.svc.TopTraders(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting top traders")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"topTraders": traders})
}

func (api *leagueApi) updateTopTraders(ctx echo.Context) error {
	var data league.UpdateTopTraders
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTopTraders")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	traders, err := api.svc.UpdateTopTraders(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating top traders")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"topTraders": traders})
}
