package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader заголовок с идентификатором запроса.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey ключ идентификатора запроса в контексте gin.
	RequestIDKey = "requestID"
	// maxRequestIDLength входящие идентификаторы длиннее этого значения заменяются новыми.
	maxRequestIDLength = 64
)

// RequestIDMiddleware берет идентификатор запроса из заголовка X-Request-ID или генерирует новый UUID.
// Идентификатор кладется в контекст gin и возвращается клиенту в том же заголовке.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}
