package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultRequestTimeout = 3 * time.Second
	// DefaultUploadTimeout запись содержимого во внешнее хранилище может занимать больше времени.
	DefaultUploadTimeout = 30 * time.Second
)

// requestContext контекст запроса с таймаутом.
func requestContext(ctx *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), timeout)
}

// links строит публичные ссылки на сниппеты, изображения и сессии.
type links struct {
	baseURL string
}

// base возвращает базовый адрес. Если он не задан в конфигурации, берется Scheme://Host запроса.
func (l links) base(r *http.Request) string {
	if l.baseURL != "" {
		return l.baseURL
	}
	var scheme = "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func (l links) snippet(r *http.Request, id string) string {
	return fmt.Sprintf("%s/share/%s", l.base(r), id)
}

func (l links) session(r *http.Request, id string) string {
	return fmt.Sprintf("%s/session/%s", l.base(r), id)
}

func (l links) imageView(r *http.Request, id string) string {
	return fmt.Sprintf("%s/image/%s", l.base(r), id)
}

func (l links) imageDownload(r *http.Request, id string) string {
	return fmt.Sprintf("%s/api/images/%s/download", l.base(r), id)
}
