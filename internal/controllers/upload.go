package controllers

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/snipshare/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	// imageFormField поле multipart формы с файлом изображения.
	imageFormField = "image"
	// multipartOverhead запас на заголовки и границы multipart формы сверх лимита на сам файл.
	multipartOverhead = 64 << 10
)

// readUpload ограничивает размер тела запроса и достает из формы файл изображения.
// В случае ошибки отвечает клиенту и возвращает false. Вызывающий должен вызвать release.
func readUpload(ctx *gin.Context, maxSize int64) (upload services.ImageUpload, release func(), ok bool) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxSize+multipartOverhead)

	fh, err := ctx.FormFile(imageFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			abortJSON(ctx, http.StatusRequestEntityTooLarge, ErrTooLarge.Error())
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			abortJSON(ctx, http.StatusBadRequest, ErrNoFile.Error())
		default:
			_ = ctx.Error(err)
			abortJSON(ctx, http.StatusBadRequest, ErrBadRequest.Error())
		}
		return services.ImageUpload{}, nil, false
	}

	file, err := fh.Open()
	if err != nil {
		_ = ctx.Error(err)
		abortJSON(ctx, http.StatusInternalServerError, ErrInternal.Error())
		return services.ImageUpload{}, nil, false
	}

	upload = services.ImageUpload{
		OriginalName: fh.Filename,
		Size:         fh.Size,
		Content:      file,
	}
	return upload, func() { _ = file.Close() }, true
}
