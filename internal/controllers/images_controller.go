package controllers

import (
	"mime"
	"net/http"

	"github.com/fsdevblog/snipshare/internal/shortcode"
	"github.com/gin-gonic/gin"
)

const msgImageNotFound = "Image not found"

// ImageController контроллер загрузки и отдачи изображений.
type ImageController struct {
	images ImageStore
	links  links
}

func NewImageController(images ImageStore, baseURL string) *ImageController {
	return &ImageController{images: images, links: links{baseURL: baseURL}}
}

type uploadImageResponse struct {
	Success     bool   `json:"success"`
	ImageID     string `json:"imageId"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
	ViewURL     string `json:"viewUrl"`
}

// Upload обрабатывает POST /api/upload-image (multipart, поле image).
//
// Размер тела ограничивается до разбора формы, превышение лимита дает 413.
func (c *ImageController) Upload(ctx *gin.Context) {
	upload, release, ok := readUpload(ctx, c.images.MaxUploadSize())
	if !ok {
		return
	}
	defer release()

	reqCtx, cancel := requestContext(ctx, DefaultUploadTimeout)
	defer cancel()

	image, err := c.images.Upload(reqCtx, upload)
	if err != nil {
		abortWithError(ctx, err, msgImageNotFound, "Failed to upload image")
		return
	}

	ctx.JSON(http.StatusOK, uploadImageResponse{
		Success:     true,
		ImageID:     image.ID,
		Filename:    image.Filename,
		DownloadURL: c.links.imageDownload(ctx.Request, image.ID),
		ViewURL:     c.links.imageView(ctx.Request, image.ID),
	})
}

// View обрабатывает GET /api/images/:id/view. Отдает содержимое для показа в браузере.
func (c *ImageController) View(ctx *gin.Context) {
	c.serve(ctx, "inline")
}

// Download обрабатывает GET /api/images/:id/download. Отдает содержимое как вложение с исходным именем файла.
func (c *ImageController) Download(ctx *gin.Context) {
	c.serve(ctx, "attachment")
}

func (c *ImageController) serve(ctx *gin.Context, disposition string) {
	id := ctx.Param("id")
	if !shortcode.IsValid(id) {
		abortJSON(ctx, http.StatusNotFound, msgImageNotFound)
		return
	}

	reqCtx, cancel := requestContext(ctx, DefaultUploadTimeout)
	defer cancel()

	image, content, err := c.images.Open(reqCtx, id)
	if err != nil {
		abortWithError(ctx, err, msgImageNotFound, "Failed to retrieve image")
		return
	}
	defer content.Close()

	cd := mime.FormatMediaType(disposition, map[string]string{"filename": image.OriginalName})
	if cd == "" {
		cd = disposition
	}
	ctx.DataFromReader(http.StatusOK, image.Size, image.Mimetype, content, map[string]string{
		"Content-Disposition": cd,
		"Cache-Control":       "public, max-age=3600",
	})
}
