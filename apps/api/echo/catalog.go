package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core/catalog"
)

type catalogApi struct {
	svc      catalog.ServiceInterface
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := catalogApi{
		svc:      s.deps.CatalogSvc,
		validate: s.validate,
	}

	cg := g.Group("/learning-phases")
	cg.GET("", api.list)
	cg.GET("/:phaseId", api.retrieve)

	// admin endpoints
	adm := []echo.MiddlewareFunc{jwt, admin}
	cg.GET("/all", api.listAll, adm...)
	cg.POST("", api.save, adm...)
	cg.PUT("/bulk/update", api.bulkSave, adm...)
	cg.PUT("/:phaseId", api.update, adm...)
	cg.DELETE("/:phaseId", api.destroy, adm...)
	cg.POST("/:phaseId/content", api.addContent, adm...)
	cg.PUT("/:phaseId/content/:contentId", api.updateContent, adm...)
	cg.DELETE("/:phaseId/content/:contentId", api.deleteContent, adm...)
}

// Handlers

func (api *catalogApi) list(ctx echo.Context) error {
	return api.doList(ctx, false)
}

func (api *catalogApi) listAll(ctx echo.Context) error {
	return api.doList(ctx, true)
}

func (api *catalogApi) doList(ctx echo.Context, includeInactive bool) error {
	phases, err := api.svc.List(ctx.Request().Context(), includeInactive)
	if err != nil {
		return errors.Wrap(err, "listing phases")
	}
	if phases == nil {
		phases = []catalog.Phase{}
	}
	return ctx.JSON(http.StatusOK, phases)
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	phase, err := api.svc.Get(ctx.Request().Context(), ctx.Param("phaseId"))
	if err != nil {
		return errors.Wrap(err, "getting phase")
	}
	return ctx.JSON(http.StatusOK, phase)
}

func (api *catalogApi) save(ctx echo.Context) error {
	var data catalog.NewPhase
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPhase")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate); err != nil {
		return err
	}

	phase, err := api.svc.Save(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "saving phase")
	}
	return ctx.JSON(http.StatusCreated, phase)
}

func (api *catalogApi) bulkSave(ctx echo.Context) error {
	var data BulkPhasesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkPhasesRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	for i := range data.Phases {
		if err := data.Phases[i].Validate(reqCtx, api.validate); err != nil {
			return err
		}
	}

	phases, err := api.svc.BulkSave(reqCtx, data.Phases)
	if err != nil {
		return errors.Wrap(err, "bulk saving phases")
	}
	return ctx.JSON(http.StatusOK, phases)
}

func (api *catalogApi) update(ctx echo.Context) error {
	var data catalog.UpdatePhase
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePhase")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	phase, err := api.svc.Update(ctx.Request().Context(), ctx.Param("phaseId"), data)
	if err != nil {
		return errors.Wrap(err, "updating phase")
	}
	return ctx.JSON(http.StatusOK, phase)
}

func (api *catalogApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("phaseId")); err != nil {
		return errors.Wrap(err, "deleting phase")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Learning phase deactivated successfully"})
}

func (api *catalogApi) addContent(ctx echo.Context) error {
	var data catalog.NewContentItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContentItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	phase, err := api.svc.AddContent(ctx.Request().Context(), ctx.Param("phaseId"), data)
	if err != nil {
		return errors.Wrap(err, "adding content")
	}
	return ctx.JSON(http.StatusCreated, phase)
}

func (api *catalogApi) updateContent(ctx echo.Context) error {
	var data catalog.UpdateContentItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContentItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	phase, err := api.svc.UpdateContent(ctx.Request().Context(), ctx.Param("phaseId"), ctx.Param("contentId"), data)
	if err != nil {
		return errors.Wrap(err, "updating content")
	}
	return ctx.JSON(http.StatusOK, phase)
}

func (api *catalogApi) deleteContent(ctx echo.Context) error {
	phase, err := api.svc.DeleteContent(ctx.Request().Context(), ctx.Param("phaseId"), ctx.Param("contentId"))
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.JSON(http.StatusOK, phase)
}
