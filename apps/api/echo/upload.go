package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/media"
)

// formFileUpload stores the multipart file sent under the first present field and returns its URL.
// It returns an empty URL if none of the fields carries a file.
func formFileUpload(ctx echo.Context, uploader media.UploaderInterface, kind media.Kind, fields ...string) (string, error) {
	for _, field := range fields {
		fh, err := ctx.FormFile(field)
		if err != nil {
			if err == http.ErrMissingFile {
				continue
			}
			if err == http.ErrNotMultipart {
				return "", core.NewFieldError(field, "expected a multipart/form-data request")
			}
			return "", errors.Wrap(err, "reading form file")
		}

		f, err := fh.Open()
		if err != nil {
			return "", errors.Wrap(err, "opening form file")
		}
		defer f.Close()

		url, err := uploader.Upload(ctx.Request().Context(), kind, fh.Filename, f, fh.Size)
		if err != nil {
			return "", errors.Wrapf(err, "uploading %s", kind)
		}
		return url, nil
	}
	return "", nil
}

func uploadHandler(uploader media.UploaderInterface, kind media.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		url, err := formFileUpload(ctx, uploader, kind, string(kind), "file")
		if err != nil {
			return err
		}
		if url == "" {
			return core.NewFieldError(string(kind), "no "+string(kind)+" uploaded")
		}
		return ctx.JSON(http.StatusOK, UploadResponse{Message: "File uploaded successfully", URL: url})
	}
}
