package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware(zap.New(core)))
	r.GET("/api/sessions/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.DELETE("/api/sessions/:id/images/:iid", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})
	r.GET("/api/snippets/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("disk on fire"))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
	return r, recorded
}

func serve(r *gin.Engine, method, target string, headers map[string]string) {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		wantLevel  zapcore.Level
		wantFields map[string]any
	}{
		{
			name:      "session read",
			method:    http.MethodGet,
			target:    "/api/sessions/Ab12Cd",
			wantLevel: zapcore.InfoLevel,
			wantFields: map[string]any{
				"route":           "/api/sessions/:id",
				logs.KeySessionID: "Ab12Cd",
				"status":          int64(http.StatusOK),
			},
		},
		{
			name:      "image removal from session",
			method:    http.MethodDelete,
			target:    "/api/sessions/Ab12Cd/images/Zz99Yy",
			wantLevel: zapcore.WarnLevel,
			wantFields: map[string]any{
				logs.KeySessionID: "Ab12Cd",
				logs.KeyImageID:   "Zz99Yy",
				"status":          int64(http.StatusNotFound),
			},
		},
		{
			name:      "snippet server error",
			method:    http.MethodGet,
			target:    "/api/snippets/Qq11Ww",
			wantLevel: zapcore.ErrorLevel,
			wantFields: map[string]any{
				logs.KeySnippetID: "Qq11Ww",
				"error":           "Error #01: disk on fire\n",
			},
		},
		{
			name:       "unknown path",
			method:     http.MethodGet,
			target:     "/nowhere",
			wantLevel:  zapcore.WarnLevel,
			wantFields: map[string]any{"route": unmatchedRoute},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, recorded := newLoggedRouter(t)
			serve(r, tt.method, tt.target, map[string]string{RequestIDHeader: "req-42"})

			entries := recorded.AllUntimed()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, "req-42", fields[logs.KeyRequestID])
			for k, v := range tt.wantFields {
				assert.Equal(t, v, fields[k], k)
			}
		})
	}
}

func TestLoggerMiddleware_NilLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoggerMiddleware(nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
