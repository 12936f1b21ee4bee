package sql

import (
	"context"
	"time"

	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ImageRepo struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewImageRepo(db *gorm.DB, logger *logrus.Logger) *ImageRepo {
	return &ImageRepo{
		db:     db,
		logger: logger.WithField("module", "repository/sql/image"),
	}
}

func (r *ImageRepo) Create(ctx context.Context, image *models.ImageAsset) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		r.logger.WithError(err).Errorf("failed to create image %s", image.ID)
		return errors.Wrapf(ConvertErrorType(err), "create image %s", image.ID)
	}
	return nil
}

func (r *ImageRepo) Get(ctx context.Context, id string) (*models.ImageAsset, error) {
	var image models.ImageAsset
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.WithError(err).Errorf("failed to get image %s", id)
		}
		return nil, errors.Wrapf(ConvertErrorType(err), "get image %s", id)
	}
	return &image, nil
}

// Delete удаляет запись безусловно. Если записи нет, вернется repositories.ErrNotFound.
func (r *ImageRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ImageAsset{})
	if res.Error != nil {
		r.logger.WithError(res.Error).Errorf("failed to delete image %s", id)
		return errors.Wrapf(ConvertErrorType(res.Error), "delete image %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ConvertErrorType(gorm.ErrRecordNotFound), "delete image %s", id)
	}
	return nil
}

func (r *ImageRepo) DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND expires_at <= ?", id, now).
		Delete(&models.ImageAsset{})
	if res.Error != nil {
		r.logger.WithError(res.Error).Errorf("failed to delete image %s", id)
		return false, errors.Wrapf(ConvertErrorType(res.Error), "delete image %s", id)
	}
	return res.RowsAffected > 0, nil
}

func (r *ImageRepo) ListExpired(ctx context.Context, now time.Time) ([]models.ImageAsset, error) {
	var images []models.ImageAsset
	if err := r.db.WithContext(ctx).Where("expires_at <= ?", now).Find(&images).Error; err != nil {
		return nil, errors.Wrap(ConvertErrorType(err), "list expired images")
	}
	return images, nil
}

func (r *ImageRepo) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.ImageAsset{}).Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(ConvertErrorType(err), "list image ids")
	}
	return ids, nil
}

func (r *ImageRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ImageAsset{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(ConvertErrorType(err), "count images")
	}
	return count, nil
}
