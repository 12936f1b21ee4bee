package controllers

import (
	"context"
	"io"

	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/services"
)

//go:generate mockgen -source=interfaces.go -destination=mocksctrl/mock.go -package=mocksctrl

type ConnectionChecker interface {
	CheckConnection(ctx context.Context) error
}

type SnippetStore interface {
	Create(ctx context.Context, in services.SnippetInput) (*models.Snippet, error)
	// View возвращает сниппет и увеличивает счетчик просмотров.
	View(ctx context.Context, id string) (*models.Snippet, error)
	Recent(ctx context.Context, limit int) ([]models.Snippet, error)
}

type ImageStore interface {
	MaxUploadSize() int64
	Upload(ctx context.Context, in services.ImageUpload) (*models.ImageAsset, error)
	// Open возвращает метаданные и содержимое изображения. Содержимое закрывает вызывающий.
	Open(ctx context.Context, id string) (*models.ImageAsset, io.ReadCloser, error)
}

type SessionStore interface {
	Create(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	AddSnippet(ctx context.Context, sessionID string, in services.SnippetInput) (*models.Snippet, *models.Session, error)
	AddImage(ctx context.Context, sessionID string, in services.ImageUpload) (*models.ImageAsset, *models.Session, error)
	RemoveSnippet(ctx context.Context, sessionID, snippetID string) (*models.Session, error)
	RemoveImage(ctx context.Context, sessionID, imageID string) (*models.Session, error)
}

type StatsProvider interface {
	Stats(ctx context.Context) (*services.Stats, error)
}
