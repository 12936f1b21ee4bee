package controllers

import (
	"net/http"
	"strconv"

	"github.com/fsdevblog/snipshare/internal/services"
	"github.com/fsdevblog/snipshare/internal/shortcode"
	"github.com/gin-gonic/gin"
)

const (
	msgSnippetNotFound = "Snippet not found"
	// maxRecentLimit верхняя граница для параметра limit.
	maxRecentLimit = 100
)

// SnippetController контроллер сниппетов.
type SnippetController struct {
	snippets SnippetStore
	links    links
}

// NewSnippetController создает новый экземпляр SnippetController.
//
// Параметры:
//   - snippets: сервис сниппетов
//   - baseURL: базовый адрес публичных ссылок, может быть пустым
func NewSnippetController(snippets SnippetStore, baseURL string) *SnippetController {
	return &SnippetController{snippets: snippets, links: links{baseURL: baseURL}}
}

type createSnippetResponse struct {
	Success   bool   `json:"success"`
	SnippetID string `json:"snippetId"`
	ShareURL  string `json:"shareUrl"`
}

// Create обрабатывает POST /api/snippets.
//
// Ожидает JSON {code, language, title, description}. Поле code обязательно.
func (c *SnippetController) Create(ctx *gin.Context) {
	var in services.SnippetInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		abortJSON(ctx, http.StatusBadRequest, ErrBadRequest.Error())
		return
	}

	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	snippet, err := c.snippets.Create(reqCtx, in)
	if err != nil {
		abortWithError(ctx, err, msgSnippetNotFound, "Failed to create snippet")
		return
	}

	ctx.JSON(http.StatusOK, createSnippetResponse{
		Success:   true,
		SnippetID: snippet.ID,
		ShareURL:  c.links.snippet(ctx.Request, snippet.ID),
	})
}

// View обрабатывает GET /api/snippets/:id. Каждый успешный запрос увеличивает счетчик просмотров.
func (c *SnippetController) View(ctx *gin.Context) {
	id := ctx.Param("id")
	if !shortcode.IsValid(id) {
		abortJSON(ctx, http.StatusNotFound, msgSnippetNotFound)
		return
	}

	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	snippet, err := c.snippets.View(reqCtx, id)
	if err != nil {
		abortWithError(ctx, err, msgSnippetNotFound, "Failed to retrieve snippet")
		return
	}
	ctx.JSON(http.StatusOK, snippet)
}

// Recent обрабатывает GET /api/snippets?limit=N.
func (c *SnippetController) Recent(ctx *gin.Context) {
	limit := services.DefaultRecentLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRecentLimit {
			abortJSON(ctx, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxRecentLimit))
			return
		}
		limit = n
	}

	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	snippets, err := c.snippets.Recent(reqCtx, limit)
	if err != nil {
		abortWithError(ctx, err, msgSnippetNotFound, "Failed to retrieve snippets")
		return
	}
	ctx.JSON(http.StatusOK, snippets)
}
