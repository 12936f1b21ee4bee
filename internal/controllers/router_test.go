package controllers

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/snipshare/internal/blob"
	"github.com/fsdevblog/snipshare/internal/cache"
	"github.com/fsdevblog/snipshare/internal/config"
	"github.com/fsdevblog/snipshare/internal/controllers/middlewares"
	"github.com/fsdevblog/snipshare/internal/db"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testBaseURL = "http://test.com"

type APISuite struct {
	suite.Suite
	fs       afero.Fs
	services *services.Services
	router   *gin.Engine
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.fs = afero.NewMemMapFs()
	blobs, err := blob.NewFSStore(s.fs, "/uploads")
	s.Require().NoError(err)

	logger := zap.NewNop()
	s.services, err = services.Factory(context.Background(), db.NewMemStorage(), services.ServiceTypeInMemory,
		services.Deps{
			Cache:  cache.NewLRUCache[models.Session](64, time.Minute, logger),
			Blobs:  blobs,
			Logger: logger,
		})
	s.Require().NoError(err)

	s.router = SetupRouter(RouterParams{
		SnippetService: s.services.SnippetService,
		ImageService:   s.services.ImageService,
		SessionService: s.services.SessionService,
		StatsService:   s.services.StatsService,
		PingService:    s.services.PingService,
		AppConf:        config.Config{BaseURL: testBaseURL},
		Logger:         logger,
	})
}

func (s *APISuite) do(fields requestFields) (*http.Response, []byte) {
	res := makeRequest(s.T(), s.router, fields)
	return res, readBody(s.T(), res)
}

func (s *APISuite) postJSON(uri string, payload any) (*http.Response, []byte) {
	b, err := json.Marshal(payload)
	s.Require().NoError(err)
	return s.do(requestFields{
		Method:      http.MethodPost,
		URL:         uri,
		Body:        bytes.NewReader(b),
		ContentType: "application/json",
	})
}

func (s *APISuite) createSnippet(code string) createSnippetResponse {
	res, body := s.postJSON("/api/snippets", map[string]string{"code": code})
	s.Require().Equal(http.StatusOK, res.StatusCode, string(body))
	var out createSnippetResponse
	s.Require().NoError(json.Unmarshal(body, &out))
	return out
}

func (s *APISuite) createSession() createSessionResponse {
	res, body := s.do(requestFields{Method: http.MethodPost, URL: "/api/sessions"})
	s.Require().Equal(http.StatusOK, res.StatusCode, string(body))
	var out createSessionResponse
	s.Require().NoError(json.Unmarshal(body, &out))
	return out
}

func (s *APISuite) stats() services.Stats {
	res, body := s.do(requestFields{Method: http.MethodGet, URL: "/api/stats"})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	var out services.Stats
	s.Require().NoError(json.Unmarshal(body, &out))
	return out
}

func (s *APISuite) countBlobs() int {
	var n int
	_ = afero.Walk(s.fs, "/uploads", func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func (s *APISuite) TestSnippet_CreateAndView() {
	code := gofakeit.Sentence(8)
	created := s.createSnippet(code)

	s.True(created.Success)
	s.Len(created.SnippetID, 6)
	s.Equal(testBaseURL+"/share/"+created.SnippetID, created.ShareURL)

	var snippet models.Snippet
	for range 3 {
		res, body := s.do(requestFields{Method: http.MethodGet, URL: "/api/snippets/" + created.SnippetID})
		s.Require().Equal(http.StatusOK, res.StatusCode)
		s.Require().NoError(json.Unmarshal(body, &snippet))
	}
	s.Equal(code, snippet.Code)
	s.Equal(models.DefaultSnippetLanguage, snippet.Language)
	s.Equal(models.DefaultSnippetTitle, snippet.Title)
	s.EqualValues(3, snippet.Views)
}

func (s *APISuite) TestSnippet_CreateValidation() {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "missing code", body: `{"language":"go"}`, wantMsg: "code content is required"},
		{name: "empty code", body: `{"code":""}`, wantMsg: "code content is required"},
		{name: "broken json", body: `{"code":`, wantMsg: ErrBadRequest.Error()},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			res, body := s.do(requestFields{
				Method:      http.MethodPost,
				URL:         "/api/snippets",
				Body:        strings.NewReader(tt.body),
				ContentType: "application/json",
			})
			s.Equal(http.StatusBadRequest, res.StatusCode)
			s.JSONEq(`{"error":"`+tt.wantMsg+`"}`, string(body))
		})
	}
	s.Zero(s.stats().TotalSnippets)
}

func (s *APISuite) TestSnippet_NotFound() {
	for _, id := range []string{"ZZZZZZ", "abc", "abc-de"} {
		res, body := s.do(requestFields{Method: http.MethodGet, URL: "/api/snippets/" + id})
		s.Equal(http.StatusNotFound, res.StatusCode, id)
		s.JSONEq(`{"error":"Snippet not found"}`, string(body))
	}
}

func (s *APISuite) TestSnippet_Recent() {
	s.createSnippet("one")
	s.createSnippet("two")

	res, body := s.do(requestFields{Method: http.MethodGet, URL: "/api/snippets?limit=1"})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	var list []models.Snippet
	s.Require().NoError(json.Unmarshal(body, &list))
	s.Len(list, 1)

	res, _ = s.do(requestFields{Method: http.MethodGet, URL: "/api/snippets"})
	s.Equal(http.StatusOK, res.StatusCode)

	res, _ = s.do(requestFields{Method: http.MethodGet, URL: "/api/snippets?limit=abc"})
	s.Equal(http.StatusBadRequest, res.StatusCode)
}

func (s *APISuite) TestImage_UploadViewDownload() {
	content := pngBytes(s.T())
	body, ct := multipartBody(s.T(), imageFormField, "cat picture.png", content)

	res, raw := s.do(requestFields{Method: http.MethodPost, URL: "/api/upload-image", Body: body, ContentType: ct})
	s.Require().Equal(http.StatusOK, res.StatusCode, string(raw))

	var uploaded uploadImageResponse
	s.Require().NoError(json.Unmarshal(raw, &uploaded))
	s.True(uploaded.Success)
	s.Equal(testBaseURL+"/api/images/"+uploaded.ImageID+"/download", uploaded.DownloadURL)
	s.Equal(testBaseURL+"/image/"+uploaded.ImageID, uploaded.ViewURL)
	s.NotEmpty(uploaded.Filename)

	res, raw = s.do(requestFields{
		Method:  http.MethodGet,
		URL:     "/api/images/" + uploaded.ImageID + "/view",
		Headers: map[string]string{"Accept-Encoding": "gzip"},
	})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	s.Equal(content, raw)
	s.Equal("image/png", res.Header.Get("Content-Type"))
	s.Empty(res.Header.Get("Content-Encoding"))
	s.True(strings.HasPrefix(res.Header.Get("Content-Disposition"), "inline"))

	res, raw = s.do(requestFields{Method: http.MethodGet, URL: "/api/images/" + uploaded.ImageID + "/download"})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	s.Equal(content, raw)
	s.Equal(`attachment; filename="cat picture.png"`, res.Header.Get("Content-Disposition"))

	res, _ = s.do(requestFields{Method: http.MethodGet, URL: "/api/images/ZZZZZZ/view"})
	s.Equal(http.StatusNotFound, res.StatusCode)
}

func (s *APISuite) TestImage_UploadTooLarge() {
	large := bytes.Repeat([]byte{0x89}, 15<<20)
	body, ct := multipartBody(s.T(), imageFormField, "huge.png", large)

	res, raw := s.do(requestFields{Method: http.MethodPost, URL: "/api/upload-image", Body: body, ContentType: ct})
	s.Equal(http.StatusRequestEntityTooLarge, res.StatusCode)
	s.JSONEq(`{"error":"file too large"}`, string(raw))

	stats := s.stats()
	s.Zero(stats.TotalImages)
	s.Zero(stats.TotalShortCodes)
	s.Zero(s.countBlobs())
}

func (s *APISuite) TestImage_UploadRejected() {
	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		wantMsg  string
	}{
		{name: "no file", wantMsg: ErrNoFile.Error()},
		{name: "wrong field", field: "file", filename: "a.png", content: pngBytes(s.T()), wantMsg: ErrNoFile.Error()},
		{name: "not an image", field: imageFormField, filename: "notes.txt", content: []byte("hello"),
			wantMsg: "only image files are allowed"},
		{name: "disguised text", field: imageFormField, filename: "notes.png", content: []byte("hello"),
			wantMsg: "only image files are allowed"},
		{name: "png named as jpeg", field: imageFormField, filename: "pic.jpg", content: pngBytes(s.T()),
			wantMsg: "only image files are allowed"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			body, ct := multipartBody(s.T(), tt.field, tt.filename, tt.content)
			res, raw := s.do(requestFields{Method: http.MethodPost, URL: "/api/upload-image", Body: body, ContentType: ct})
			s.Equal(http.StatusBadRequest, res.StatusCode, string(raw))
			s.JSONEq(`{"error":"`+tt.wantMsg+`"}`, string(raw))
		})
	}
	s.Zero(s.stats().TotalImages)
	s.Zero(s.countBlobs())
}

func (s *APISuite) TestSession_Scenario() {
	created := s.createSession()
	s.True(created.Success)
	s.Equal(testBaseURL+"/session/"+created.SessionID, created.ShareURL)
	s.Require().NotNil(created.Session)
	s.Empty(created.Session.Snippets)

	sessionURL := "/api/sessions/" + created.SessionID

	res, raw := s.postJSON(sessionURL+"/snippets", map[string]string{"code": "x := 1", "language": "go"})
	s.Require().Equal(http.StatusOK, res.StatusCode, string(raw))
	var addedSnippet addSnippetResponse
	s.Require().NoError(json.Unmarshal(raw, &addedSnippet))
	s.Equal(created.SessionID, addedSnippet.SessionID)
	s.Equal("go", addedSnippet.Snippet.Language)

	body, ct := multipartBody(s.T(), imageFormField, "pic.png", pngBytes(s.T()))
	res, raw = s.do(requestFields{Method: http.MethodPost, URL: sessionURL + "/images", Body: body, ContentType: ct})
	s.Require().Equal(http.StatusOK, res.StatusCode, string(raw))
	var addedImage addImageResponse
	s.Require().NoError(json.Unmarshal(raw, &addedImage))
	s.Equal("pic.png", addedImage.ImageInfo.OriginalName)
	s.Equal(testBaseURL+"/image/"+addedImage.ImageID, addedImage.ViewURL)

	res, raw = s.do(requestFields{Method: http.MethodGet, URL: sessionURL})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	var session models.Session
	s.Require().NoError(json.Unmarshal(raw, &session))
	s.Len(session.Snippets, 1)
	s.Len(session.Images, 1)
	etag := res.Header.Get("ETag")
	s.Equal(revisionETag(&session), etag)

	// Пока документ не изменился, опрос получает 304.
	res, raw = s.do(requestFields{
		Method:  http.MethodGet,
		URL:     sessionURL,
		Headers: map[string]string{"If-None-Match": etag, "Accept-Encoding": "gzip"},
	})
	s.Equal(http.StatusNotModified, res.StatusCode)
	s.Empty(raw)
	s.Empty(res.Header.Get("Content-Encoding"))

	res, raw = s.do(requestFields{
		Method: http.MethodDelete,
		URL:    sessionURL + "/snippets/" + addedSnippet.SnippetID,
	})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	s.JSONEq(`{"success":true,"message":"Snippet removed from session"}`, string(raw))

	res, raw = s.do(requestFields{
		Method:  http.MethodGet,
		URL:     sessionURL,
		Headers: map[string]string{"If-None-Match": etag},
	})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	s.NotEqual(etag, res.Header.Get("ETag"))
	s.Require().NoError(json.Unmarshal(raw, &session))
	s.Empty(session.Snippets)
	s.Len(session.Images, 1)

	res, _ = s.do(requestFields{Method: http.MethodDelete, URL: sessionURL + "/images/" + addedImage.ImageID})
	s.Equal(http.StatusOK, res.StatusCode)

	// Изображение остается доступным по прямой ссылке.
	res, _ = s.do(requestFields{Method: http.MethodGet, URL: "/api/images/" + addedImage.ImageID + "/view"})
	s.Equal(http.StatusOK, res.StatusCode)

	// Повторное удаление.
	res, raw = s.do(requestFields{Method: http.MethodDelete, URL: sessionURL + "/images/" + addedImage.ImageID})
	s.Equal(http.StatusNotFound, res.StatusCode)
	s.JSONEq(`{"error":"Image not found in session"}`, string(raw))

	// Сниппет, добавленный в сессию, доступен и сам по себе.
	res, _ = s.do(requestFields{Method: http.MethodGet, URL: "/api/snippets/" + addedSnippet.SnippetID})
	s.Equal(http.StatusOK, res.StatusCode)
}

func (s *APISuite) TestSession_NotFound() {
	res, raw := s.do(requestFields{Method: http.MethodGet, URL: "/api/sessions/ZZZZZZ"})
	s.Equal(http.StatusNotFound, res.StatusCode)
	s.JSONEq(`{"error":"Session not found"}`, string(raw))

	res, _ = s.postJSON("/api/sessions/ZZZZZZ/snippets", map[string]string{"code": "x"})
	s.Equal(http.StatusNotFound, res.StatusCode)
	s.Zero(s.stats().TotalSnippets)

	body, ct := multipartBody(s.T(), imageFormField, "pic.png", pngBytes(s.T()))
	res, _ = s.do(requestFields{Method: http.MethodPost, URL: "/api/sessions/ZZZZZZ/images", Body: body, ContentType: ct})
	s.Equal(http.StatusNotFound, res.StatusCode)
	s.Zero(s.countBlobs())

	res, _ = s.do(requestFields{Method: http.MethodDelete, URL: "/api/sessions/ZZZZZZ/snippets/AAAAAA"})
	s.Equal(http.StatusNotFound, res.StatusCode)
}

func (s *APISuite) TestGzip() {
	res := makeRequest(s.T(), s.router, requestFields{
		Method:      http.MethodPost,
		URL:         "/api/snippets",
		Body:        strings.NewReader(`{"code":"compressed"}`),
		ContentType: "application/json",
		Gzipped:     true,
	})
	s.Equal("gzip", res.Header.Get("Content-Encoding"))
	raw := readBody(s.T(), res)
	s.Require().Equal(http.StatusOK, res.StatusCode, string(raw))

	var created createSnippetResponse
	s.Require().NoError(json.Unmarshal(raw, &created))
	s.True(created.Success)

	res = makeRequest(s.T(), s.router, requestFields{
		Method:      http.MethodPost,
		URL:         "/api/snippets",
		Body:        strings.NewReader("not gzip at all"),
		ContentType: "application/json",
		Headers:     map[string]string{"Content-Encoding": "gzip"},
	})
	s.Equal(http.StatusBadRequest, res.StatusCode)
}

func (s *APISuite) TestStatsAndPing() {
	s.createSnippet("a")
	s.createSession()

	stats := s.stats()
	s.EqualValues(1, stats.TotalSnippets)
	s.EqualValues(1, stats.TotalSessions)
	s.Equal(2, stats.TotalShortCodes)
	s.Equal(services.PossibleCombinations, stats.PossibleCombinations)

	res, raw := s.do(requestFields{Method: http.MethodGet, URL: "/ping"})
	s.Equal(http.StatusOK, res.StatusCode)
	s.Equal("pong", string(raw))
}

func (s *APISuite) TestMiddlewares() {
	res, _ := s.do(requestFields{Method: http.MethodGet, URL: "/ping"})
	s.NotEmpty(res.Header.Get(middlewares.RequestIDHeader))

	res, _ = s.do(requestFields{
		Method:  http.MethodGet,
		URL:     "/ping",
		Headers: map[string]string{middlewares.RequestIDHeader: "req-1"},
	})
	s.Equal("req-1", res.Header.Get(middlewares.RequestIDHeader))

	res, _ = s.do(requestFields{
		Method: http.MethodOptions,
		URL:    "/api/snippets",
		Headers: map[string]string{
			"Origin":                        "http://localhost:3000",
			"Access-Control-Request-Method": http.MethodPost,
		},
	})
	s.Equal(http.StatusNoContent, res.StatusCode)
	s.Equal("*", res.Header.Get("Access-Control-Allow-Origin"))

	res, raw := s.do(requestFields{Method: http.MethodGet, URL: "/nowhere"})
	s.Equal(http.StatusNotFound, res.StatusCode)
	s.JSONEq(`{"error":"Not found"}`, string(raw))
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}
