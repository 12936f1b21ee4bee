package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// msgStorageUnavailable ответ /ping, если одно из хранилищ недоступно.
const msgStorageUnavailable = "Storage unavailable"

// PingController проверка доступности для балансировщика и оркестратора.
type PingController struct {
	conn ConnectionChecker // Хранилище документов, кеш сессий и хранилище изображений
}

func NewPingController(conn ConnectionChecker) *PingController {
	return &PingController{conn: conn}
}

// Ping обрабатывает GET и HEAD /ping: "pong", если все хранилища отвечают, иначе 500 с JSON ошибкой.
// Причина сбоя попадает только в лог запроса.
func (c *PingController) Ping(ctx *gin.Context) {
	ctx.Header("Cache-Control", "no-store")

	pingCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()
	if err := c.conn.CheckConnection(pingCtx); err != nil {
		_ = ctx.Error(errors.Wrap(err, "ping"))
		abortJSON(ctx, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}
	ctx.String(http.StatusOK, "pong")
}
