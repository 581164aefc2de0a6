package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core/media"
	"github.com/prochartist/backend/core/video"
)

type videoApi struct {
	svc      video.ServiceInterface
	validate *validator.Validate
}

func registerVideoAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := videoApi{
		svc:      s.deps.VideoSvc,
		validate: s.validate,
	}

	vg := g.Group("/videos")
	vg.GET("", api.list)
	vg.GET("/:id", api.retrieve)

	// admin endpoints
	adm := []echo.MiddlewareFunc{jwt, admin}
	vg.GET("/all", api.listAll, adm...)
	vg.POST("", api.save, adm...)
	vg.PUT("/bulk/update", api.bulkSave, adm...)
	vg.PUT("/:id", api.update, adm...)
	vg.DELETE("/:id", api.destroy, adm...)
	vg.POST("/upload/image", uploadHandler(s.deps.Uploader, media.KindImage), adm...)
	vg.POST("/upload/video", uploadHandler(s.deps.Uploader, media.KindVideo), adm...)
}

// Handlers

func (api *videoApi) list(ctx echo.Context) error {
	return api.doList(ctx, false)
}

func (api *videoApi) listAll(ctx echo.Context) error {
	return api.doList(ctx, true)
}

func (api *videoApi) doList(ctx echo.Context, includeInactive bool) error {
	videos, err := api.svc.List(ctx.Request().Context(), includeInactive)
	if err != nil {
		return errors.Wrap(err, "listing videos")
	}
	if videos == nil {
		videos = []video.Video{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *videoApi) retrieve(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	v, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting video")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *videoApi) save(ctx echo.Context) error {
	var data video.NewVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVideo")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if data.UploadedBy == "" {
		if claims, err := getContextClaims(ctx); err == nil {
			data.UploadedBy = claims.Email
		}
	}

	v, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving video")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *videoApi) bulkSave(ctx echo.Context) error {
	var data video.BulkUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	videos, err := api.svc.BulkSave(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "bulk saving videos")
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *videoApi) update(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	var data video.UpdateVideo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateVideo")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating video")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *videoApi) destroy(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Video deactivated successfully"})
}
