package controllers

import (
	"bytes"
	"compress/gzip"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type requestFields struct {
	Method      string
	URL         string
	Body        io.Reader
	ContentType string
	Gzipped     bool
	Headers     map[string]string
}

// makeRequest вспомогательная функция создающая тестовый http запрос.
func makeRequest(t *testing.T, router *gin.Engine, fields requestFields) *http.Response {
	t.Helper()
	body := fields.Body

	// Добавляем gzip сжатие тела запроса, если надо.
	if fields.Gzipped && fields.Body != nil {
		var gzipBuffer bytes.Buffer
		gzipW, gzErr := gzip.NewWriterLevel(&gzipBuffer, gzip.BestSpeed)
		require.NoError(t, gzErr)
		_, copyErr := io.Copy(gzipW, fields.Body)
		require.NoError(t, copyErr)
		require.NoError(t, gzipW.Close())
		body = &gzipBuffer
	}

	request := httptest.NewRequest(fields.Method, fields.URL, body)
	if fields.ContentType != "" {
		request.Header.Set("Content-Type", fields.ContentType)
	}
	if fields.Gzipped {
		request.Header.Set("Content-Encoding", "gzip")
		request.Header.Set("Accept-Encoding", "gzip")
	}
	for k, v := range fields.Headers {
		request.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	return recorder.Result()
}

// readBody Читает тело ответа, если тело сжатое - расжимает.
func readBody(t *testing.T, res *http.Response) []byte {
	t.Helper()
	defer res.Body.Close()

	var r io.Reader = res.Body
	if res.Header.Get("Content-Encoding") == "gzip" {
		gzr, err := gzip.NewReader(res.Body)
		require.NoError(t, err)
		defer gzr.Close()
		r = gzr
	}
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return body
}

// multipartBody собирает multipart форму. Пустой field дает форму без файла.
func multipartBody(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
