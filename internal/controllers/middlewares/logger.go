package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// unmatchedRoute значение поля route для запросов, не попавших ни в один маршрут.
const unmatchedRoute = "unmatched"

// LoggerMiddleware пишет одну запись на запрос. Ставится после RequestIDMiddleware.
// Запись содержит шаблон маршрута и id сессии, сниппета или изображения из параметров пути.
// Ответы 5xx пишутся с уровнем error, 4xx с уровнем warn.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		fields := []zap.Field{
			logs.RequestID(c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("uri", c.Request.RequestURI),
			zap.Int("status", status),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		}
		if enc := c.GetHeader("Content-Encoding"); enc != "" {
			fields = append(fields, zap.String("content_encoding", enc))
		}
		fields = append(fields, entityFields(c, route)...)
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			fields = append(fields, zap.String("error", msg))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("server error", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("client error", fields...)
		default:
			logger.Info("request processed", fields...)
		}
	}
}

// entityFields переводит параметры маршрута в поля с id сущностей.
func entityFields(c *gin.Context, route string) []zap.Field {
	id := c.Param("id")
	if id == "" {
		return nil
	}
	switch {
	case strings.HasPrefix(route, "/api/sessions/"):
		fields := []zap.Field{logs.SessionID(id)}
		if sid := c.Param("sid"); sid != "" {
			fields = append(fields, logs.SnippetID(sid))
		}
		if iid := c.Param("iid"); iid != "" {
			fields = append(fields, logs.ImageID(iid))
		}
		return fields
	case strings.HasPrefix(route, "/api/snippets/"):
		return []zap.Field{logs.SnippetID(id)}
	case strings.HasPrefix(route, "/api/images/"):
		return []zap.Field{logs.ImageID(id)}
	default:
		return nil
	}
}
