package sql

import (
	"context"
	"time"

	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SnippetRepo struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewSnippetRepo(db *gorm.DB, logger *logrus.Logger) *SnippetRepo {
	return &SnippetRepo{
		db:     db,
		logger: logger.WithField("module", "repository/sql/snippet"),
	}
}

func (r *SnippetRepo) Create(ctx context.Context, snippet *models.Snippet) error {
	if err := r.db.WithContext(ctx).Create(snippet).Error; err != nil {
		r.logger.WithError(err).Errorf("failed to create snippet %s", snippet.ID)
		return errors.Wrapf(ConvertErrorType(err), "create snippet %s", snippet.ID)
	}
	return nil
}

func (r *SnippetRepo) Get(ctx context.Context, id string) (*models.Snippet, error) {
	var snippet models.Snippet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&snippet).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.WithError(err).Errorf("failed to get snippet %s", id)
		}
		return nil, errors.Wrapf(ConvertErrorType(err), "get snippet %s", id)
	}
	return &snippet, nil
}

// IncrementViews увеличивает счетчик просмотров на стороне базы и перечитывает запись.
func (r *SnippetRepo) IncrementViews(ctx context.Context, id string) (*models.Snippet, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Snippet{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		r.logger.WithError(res.Error).Errorf("failed to increment views of snippet %s", id)
		return nil, errors.Wrapf(ConvertErrorType(res.Error), "increment views of snippet %s", id)
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrapf(ConvertErrorType(gorm.ErrRecordNotFound), "increment views of snippet %s", id)
	}
	return r.Get(ctx, id)
}

// Delete удаляет запись безусловно. Если записи нет, вернется repositories.ErrNotFound.
func (r *SnippetRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Snippet{})
	if res.Error != nil {
		r.logger.WithError(res.Error).Errorf("failed to delete snippet %s", id)
		return errors.Wrapf(ConvertErrorType(res.Error), "delete snippet %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ConvertErrorType(gorm.ErrRecordNotFound), "delete snippet %s", id)
	}
	return nil
}

func (r *SnippetRepo) DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND expires_at <= ?", id, now).
		Delete(&models.Snippet{})
	if res.Error != nil {
		r.logger.WithError(res.Error).Errorf("failed to delete snippet %s", id)
		return false, errors.Wrapf(ConvertErrorType(res.Error), "delete snippet %s", id)
	}
	return res.RowsAffected > 0, nil
}

func (r *SnippetRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Snippet, error) {
	var snippets []models.Snippet
	if err := r.db.WithContext(ctx).Where("expires_at <= ?", now).Find(&snippets).Error; err != nil {
		return nil, errors.Wrap(ConvertErrorType(err), "list expired snippets")
	}
	return snippets, nil
}

func (r *SnippetRepo) ListRecent(ctx context.Context, limit int) ([]models.Snippet, error) {
	var snippets []models.Snippet
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Order("id").
		Limit(limit).
		Find(&snippets).Error
	if err != nil {
		return nil, errors.Wrap(ConvertErrorType(err), "list recent snippets")
	}
	return snippets, nil
}

func (r *SnippetRepo) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Snippet{}).Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(ConvertErrorType(err), "list snippet ids")
	}
	return ids, nil
}

func (r *SnippetRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Snippet{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(ConvertErrorType(err), "count snippets")
	}
	return count, nil
}
