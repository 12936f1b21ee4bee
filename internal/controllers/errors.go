package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fsdevblog/snipshare/internal/services"
	"github.com/gin-gonic/gin"
)

// Ошибки.
var (
	ErrRecordNotFound = errors.New("record not found")     // Запись не найдена
	ErrInternal       = errors.New("internal error")       // Прочая ошибка
	ErrBadRequest     = errors.New("invalid request body") // Тело запроса не разобрано
	ErrNoFile         = errors.New("no image file provided")
	ErrTooLarge       = errors.New("file too large")
	ErrConflict       = errors.New("session was modified concurrently, try again")
)

// errorResponse тело ответа с ошибкой.
type errorResponse struct {
	Error string `json:"error"`
}

// abortWithError отвечает клиенту статусом, соответствующим ошибке сервисного слоя.
// notFound подставляется в ответ для отсутствующих записей, internal для прочих ошибок.
func abortWithError(ctx *gin.Context, err error, notFound, internal string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		abortJSON(ctx, http.StatusBadRequest, publicMessage(err, services.ErrValidation))
	case errors.Is(err, services.ErrTooLarge):
		abortJSON(ctx, http.StatusRequestEntityTooLarge, ErrTooLarge.Error())
	case errors.Is(err, services.ErrRecordNotFound):
		abortJSON(ctx, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrConflict):
		_ = ctx.Error(err)
		abortJSON(ctx, http.StatusConflict, ErrConflict.Error())
	default:
		_ = ctx.Error(err)
		abortJSON(ctx, http.StatusInternalServerError, internal)
	}
}

func abortJSON(ctx *gin.Context, status int, msg string) {
	ctx.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// publicMessage отрезает от текста ошибки служебный суффикс sentinel ошибки.
func publicMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == sentinel.Error() {
		return ErrBadRequest.Error()
	}
	return msg
}
