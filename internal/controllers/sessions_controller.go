package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/services"
	"github.com/fsdevblog/snipshare/internal/shortcode"
	"github.com/gin-gonic/gin"
)

const (
	msgSessionNotFound        = "Session not found"
	msgSessionSnippetNotFound = "Snippet not found in session"
	msgSessionImageNotFound   = "Image not found in session"
)

// SessionController контроллер совместных сессий.
//
// Клиенты опрашивают GET /api/sessions/:id. Ответ содержит ETag с временем создания и ревизией документа,
// повторный запрос с If-None-Match получает 304, пока документ не изменился.
type SessionController struct {
	sessions  SessionStore
	maxUpload func() int64
	links     links
}

// NewSessionController создает новый экземпляр SessionController.
//
// Параметры:
//   - sessions: сервис сессий
//   - images: сервис изображений, из него берется лимит размера загрузки
//   - baseURL: базовый адрес публичных ссылок, может быть пустым
func NewSessionController(sessions SessionStore, images ImageStore, baseURL string) *SessionController {
	return &SessionController{
		sessions:  sessions,
		maxUpload: images.MaxUploadSize,
		links:     links{baseURL: baseURL},
	}
}

type createSessionResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"sessionId"`
	ShareURL  string          `json:"shareUrl"`
	Session   *models.Session `json:"session"`
}

type addSnippetResponse struct {
	Success   bool            `json:"success"`
	SnippetID string          `json:"snippetId"`
	SessionID string          `json:"sessionId"`
	ShareURL  string          `json:"shareUrl"`
	Snippet   *models.Snippet `json:"snippet"`
}

type addImageResponse struct {
	Success     bool               `json:"success"`
	ImageID     string             `json:"imageId"`
	SessionID   string             `json:"sessionId"`
	ShareURL    string             `json:"shareUrl"`
	DownloadURL string             `json:"downloadUrl"`
	ViewURL     string             `json:"viewUrl"`
	ImageInfo   *models.ImageAsset `json:"imageInfo"`
}

type removeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Create обрабатывает POST /api/sessions.
func (c *SessionController) Create(ctx *gin.Context) {
	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	session, err := c.sessions.Create(reqCtx)
	if err != nil {
		abortWithError(ctx, err, msgSessionNotFound, "Failed to create session")
		return
	}
	ctx.JSON(http.StatusOK, createSessionResponse{
		Success:   true,
		SessionID: session.ID,
		ShareURL:  c.links.session(ctx.Request, session.ID),
		Session:   session,
	})
}

// Get обрабатывает GET /api/sessions/:id.
func (c *SessionController) Get(ctx *gin.Context) {
	id, ok := c.sessionID(ctx)
	if !ok {
		return
	}

	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	session, err := c.sessions.Get(reqCtx, id)
	if err != nil {
		abortWithError(ctx, err, msgSessionNotFound, "Failed to retrieve session")
		return
	}

	etag := revisionETag(session)
	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "no-cache")
	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// AddSnippet обрабатывает POST /api/sessions/:id/snippets.
func (c *SessionController) AddSnippet(ctx *gin.Context) {
	id, ok := c.sessionID(ctx)
	if !ok {
		return
	}

	var in services.SnippetInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		abortJSON(ctx, http.StatusBadRequest, ErrBadRequest.Error())
		return
	}

	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	snippet, session, err := c.sessions.AddSnippet(reqCtx, id, in)
	if err != nil {
		abortWithError(ctx, err, msgSessionNotFound, "Failed to add snippet to session")
		return
	}
	ctx.Header("ETag", revisionETag(session))
	ctx.JSON(http.StatusOK, addSnippetResponse{
		Success:   true,
		SnippetID: snippet.ID,
		SessionID: session.ID,
		ShareURL:  c.links.session(ctx.Request, session.ID),
		Snippet:   snippet,
	})
}

// AddImage обрабатывает POST /api/sessions/:id/images (multipart, поле image).
func (c *SessionController) AddImage(ctx *gin.Context) {
	id, ok := c.sessionID(ctx)
	if !ok {
		return
	}

	upload, release, ok := readUpload(ctx, c.maxUpload())
	if !ok {
		return
	}
	defer release()

	reqCtx, cancel := requestContext(ctx, DefaultUploadTimeout)
	defer cancel()

	image, session, err := c.sessions.AddImage(reqCtx, id, upload)
	if err != nil {
		abortWithError(ctx, err, msgSessionNotFound, "Failed to add image to session")
		return
	}
	ctx.Header("ETag", revisionETag(session))
	ctx.JSON(http.StatusOK, addImageResponse{
		Success:     true,
		ImageID:     image.ID,
		SessionID:   session.ID,
		ShareURL:    c.links.session(ctx.Request, session.ID),
		DownloadURL: c.links.imageDownload(ctx.Request, image.ID),
		ViewURL:     c.links.imageView(ctx.Request, image.ID),
		ImageInfo:   image,
	})
}

// RemoveSnippet обрабатывает DELETE /api/sessions/:id/snippets/:sid.
func (c *SessionController) RemoveSnippet(ctx *gin.Context) {
	id, ok := c.sessionID(ctx)
	if !ok {
		return
	}

	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	session, err := c.sessions.RemoveSnippet(reqCtx, id, ctx.Param("sid"))
	if err != nil {
		abortWithError(ctx, err, msgSessionSnippetNotFound, "Failed to remove snippet")
		return
	}
	ctx.Header("ETag", revisionETag(session))
	ctx.JSON(http.StatusOK, removeResponse{Success: true, Message: "Snippet removed from session"})
}

// RemoveImage обрабатывает DELETE /api/sessions/:id/images/:iid.
// Удаляется только ссылка в сессии, само изображение остается доступным до истечения срока.
func (c *SessionController) RemoveImage(ctx *gin.Context) {
	id, ok := c.sessionID(ctx)
	if !ok {
		return
	}

	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	session, err := c.sessions.RemoveImage(reqCtx, id, ctx.Param("iid"))
	if err != nil {
		abortWithError(ctx, err, msgSessionImageNotFound, "Failed to remove image")
		return
	}
	ctx.Header("ETag", revisionETag(session))
	ctx.JSON(http.StatusOK, removeResponse{Success: true, Message: "Image removed from session"})
}

func (c *SessionController) sessionID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if !shortcode.IsValid(id) {
		abortJSON(ctx, http.StatusNotFound, msgSessionNotFound)
		return "", false
	}
	return id, true
}

// revisionETag строит ETag из времени создания и ревизии документа.
// Время создания различает сессии, получившие один и тот же освободившийся id.
func revisionETag(session *models.Session) string {
	created := strconv.FormatInt(session.CreatedAt.UnixNano(), 36)
	return `"` + created + "-" + strconv.FormatUint(session.Revision, 10) + `"`
}

// etagMatches сравнивает значение If-None-Match с текущим ETag. Слабые теги сравниваются как сильные.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
