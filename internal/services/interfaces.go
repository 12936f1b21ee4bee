package services

import (
	"context"
	"io"
	"time"

	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/shortcode"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock.go -package=mocks

// CodeAllocator выдает уникальные короткие коды.
type CodeAllocator interface {
	Next() shortcode.Result
	Remove(codes ...string)
	Len() int
}

// SnippetRepository описывает репозиторий сниппетов.
type SnippetRepository interface {
	// Create сохраняет сниппет. Занятый id приводит к repositories.ErrDuplicateKey.
	Create(ctx context.Context, snippet *models.Snippet) error
	Get(ctx context.Context, id string) (*models.Snippet, error)
	// IncrementViews атомарно увеличивает счетчик просмотров и возвращает обновленную запись.
	IncrementViews(ctx context.Context, id string) (*models.Snippet, error)
	Delete(ctx context.Context, id string) error
	// DeleteIfExpired удаляет запись, только если её срок истек к now.
	DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.Snippet, error)
	ListRecent(ctx context.Context, limit int) ([]models.Snippet, error)
	IDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// ImageRepository описывает репозиторий метаданных изображений.
type ImageRepository interface {
	Create(ctx context.Context, image *models.ImageAsset) error
	Get(ctx context.Context, id string) (*models.ImageAsset, error)
	Delete(ctx context.Context, id string) error
	DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.ImageAsset, error)
	IDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// SessionRepository описывает репозиторий документов сессий.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	// Replace перезаписывает документ, если сохраненная ревизия равна session.Revision,
	// иначе repositories.ErrStaleRevision. При успехе увеличивает session.Revision.
	Replace(ctx context.Context, session *models.Session) error
	// DeleteIfExpired удаляет документ, только если он в ревизии revision и его срок истек к now.
	DeleteIfExpired(ctx context.Context, id string, revision uint64, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.Session, error)
	IDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// SessionCache кеш документов сессий. Промах допустим всегда.
// SetIfNewer не перезаписывает запись с той же или более новой ревизией.
type SessionCache interface {
	Get(ctx context.Context, key string) (*models.Session, bool)
	SetIfNewer(ctx context.Context, key string, session *models.Session, revision uint64)
	Delete(ctx context.Context, key string)
}

// BlobStore хранилище содержимого изображений.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
