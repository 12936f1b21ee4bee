package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/snipshare/internal/db/memory"
	"github.com/fsdevblog/snipshare/internal/models"
)

// ImageRepo репозиторий метаданных изображений в памяти.
type ImageRepo struct {
	s *memory.MStorage
}

func NewImageRepo(store *memory.MStorage) *ImageRepo {
	return &ImageRepo{s: store}
}

func (r *ImageRepo) Create(ctx context.Context, image *models.ImageAsset) error {
	if err := memory.Set(ctx, image.ID, image, r.s); err != nil {
		return fmt.Errorf("failed to create image %s: %w", image.ID, convertErrorType(err))
	}
	return nil
}

func (r *ImageRepo) Get(ctx context.Context, id string) (*models.ImageAsset, error) {
	image, err := memory.Get[models.ImageAsset](ctx, id, r.s)
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", id, convertErrorType(err))
	}
	return image, nil
}

// Delete удаляет запись безусловно. Если записи нет, вернется repositories.ErrNotFound.
func (r *ImageRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, convertErrorType(err))
	}
	return nil
}

func (r *ImageRepo) DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	deleted, err := memory.DeleteIf[models.ImageAsset](ctx, id, r.s, func(i *models.ImageAsset) bool {
		return i.IsExpired(now)
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete image %s: %w", id, convertErrorType(err))
	}
	return deleted, nil
}

func (r *ImageRepo) ListExpired(ctx context.Context, now time.Time) ([]models.ImageAsset, error) {
	images, err := memory.FilterAll[models.ImageAsset](ctx, r.s, func(i models.ImageAsset) bool {
		return i.IsExpired(now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expired images: %w", convertErrorType(err))
	}
	return images, nil
}

func (r *ImageRepo) IDs(_ context.Context) ([]string, error) {
	return r.s.Keys(), nil
}

func (r *ImageRepo) Count(_ context.Context) (int64, error) {
	return int64(r.s.Len()), nil
}
