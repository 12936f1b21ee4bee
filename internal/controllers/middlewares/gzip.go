package middlewares

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// gzipWriter обертка над gin.ResponseWriter для сжатия ответов в формате gzip.
// Сжатие включается при первой записи тела, пустые ответы (например 304) уходят без изменений.
type gzipWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer
}

// Write реализует интерфейс io.Writer.
// Записывает сжатые данные в формате gzip.
//
// Параметры:
//   - data: данные для записи
//
// Возвращает:
//   - int: количество записанных байт
//   - error: ошибка записи
func (g *gzipWriter) Write(data []byte) (int, error) {
	if g.writer == nil {
		h := g.ResponseWriter.Header()
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")
		g.writer = gzip.NewWriter(g.ResponseWriter)
	}
	return g.writer.Write(data) //nolint:wrapcheck
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

func (g *gzipWriter) close() error {
	if g.writer == nil {
		return nil
	}
	return g.writer.Close() //nolint:wrapcheck
}

// gzipReader распакованное тело запроса. Закрывает и распаковщик, и исходное тело.
type gzipReader struct {
	*gzip.Reader
	body io.Closer
}

func (r *gzipReader) Close() error {
	if err := r.Reader.Close(); err != nil {
		_ = r.body.Close()
		return err //nolint:wrapcheck
	}
	return r.body.Close() //nolint:wrapcheck
}

// GzipMiddleware создает middleware для автоматического сжатия ответов
// и распаковки запросов в формате gzip.
//
// Для ответов:
//   - Проверяет поддержку gzip в заголовке Accept-Encoding
//   - Пропускает пути из skipPrefixes (отдача бинарного содержимого с Content-Length)
//   - При поддержке сжимает ответ и устанавливает заголовки Content-Encoding и Vary
//
// Для запросов:
//   - Обрабатывает только POST, PUT, PATCH запросы
//   - При наличии заголовка Content-Encoding: gzip подменяет тело потоковым распаковщиком
func GzipMiddleware(skipPrefixes ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !readGzip(ctx) {
			return
		}

		if !acceptsGzip(ctx.Request) || hasAnyPrefix(ctx.Request.URL.Path, skipPrefixes) {
			ctx.Next()
			return
		}

		gzWriter := &gzipWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = gzWriter
		defer func() {
			if closeErr := gzWriter.close(); closeErr != nil {
				_ = ctx.Error(fmt.Errorf("close gzip writer: %w", closeErr))
			}
			ctx.Writer = gzWriter.ResponseWriter
		}()

		ctx.Next()
	}
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	return slices.ContainsFunc(prefixes, func(p string) bool { return strings.HasPrefix(path, p) })
}

// readGzip обрабатывает сжатые запросы в формате gzip.
// Возвращает false, если запрос прерван из-за некорректного тела.
//
// Параметры:
//   - ctx: контекст Gin
func readGzip(ctx *gin.Context) bool {
	if !slices.Contains([]string{http.MethodPost, http.MethodPut, http.MethodPatch}, ctx.Request.Method) {
		return true
	}
	ce := ctx.Request.Header.Get("Content-Encoding")
	if !strings.Contains(ce, "gzip") {
		return true
	}

	gzReader, gzErr := gzip.NewReader(ctx.Request.Body)
	if gzErr != nil {
		_ = ctx.Error(fmt.Errorf("read gzip: %w", gzErr))
		ctx.AbortWithStatus(http.StatusBadRequest)
		return false
	}

	ctx.Request.Body = &gzipReader{Reader: gzReader, body: ctx.Request.Body}
	ctx.Request.ContentLength = -1
	return true
}
