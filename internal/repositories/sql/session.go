package sql

import (
	"context"
	"time"

	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/repositories"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SessionRepo struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewSessionRepo(db *gorm.DB, logger *logrus.Logger) *SessionRepo {
	return &SessionRepo{
		db:     db,
		logger: logger.WithField("module", "repository/sql/session"),
	}
}

func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		r.logger.WithError(err).Errorf("failed to create session %s", session.ID)
		return errors.Wrapf(ConvertErrorType(err), "create session %s", session.ID)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.WithError(err).Errorf("failed to get session %s", id)
		}
		return nil, errors.Wrapf(ConvertErrorType(err), "get session %s", id)
	}
	return &session, nil
}

// Replace перезаписывает документ целиком условным UPDATE ... WHERE id = ? AND revision = ?.
// При успехе session.Revision увеличивается на единицу. Отсутствующий документ не создается.
func (r *SessionRepo) Replace(ctx context.Context, session *models.Session) error {
	expected := session.Revision
	next := *session
	next.Revision = expected + 1

	res := r.db.WithContext(ctx).
		Model(&models.Session{ID: session.ID}).
		Where("revision = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(&next)
	if res.Error != nil {
		r.logger.WithError(res.Error).Errorf("failed to replace session %s", session.ID)
		return errors.Wrapf(ConvertErrorType(res.Error), "replace session %s", session.ID)
	}
	if res.RowsAffected == 0 {
		return r.missOrStale(ctx, session.ID)
	}
	session.Revision = next.Revision
	return nil
}

// missOrStale выясняет, почему условное обновление не затронуло ни одной строки.
func (r *SessionRepo) missOrStale(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errors.Wrapf(ConvertErrorType(err), "replace session %s", id)
	}
	if count == 0 {
		return errors.Wrapf(ConvertErrorType(gorm.ErrRecordNotFound), "replace session %s", id)
	}
	return errors.Wrapf(repositories.ErrStaleRevision, "replace session %s", id)
}

func (r *SessionRepo) DeleteIfExpired(ctx context.Context, id string, revision uint64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND revision = ? AND expires_at <= ?", id, revision, now).
		Delete(&models.Session{})
	if res.Error != nil {
		r.logger.WithError(res.Error).Errorf("failed to delete session %s", id)
		return false, errors.Wrapf(ConvertErrorType(res.Error), "delete session %s", id)
	}
	return res.RowsAffected > 0, nil
}

func (r *SessionRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.db.WithContext(ctx).Where("expires_at <= ?", now).Find(&sessions).Error; err != nil {
		return nil, errors.Wrap(ConvertErrorType(err), "list expired sessions")
	}
	return sessions, nil
}

func (r *SessionRepo) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Session{}).Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(ConvertErrorType(err), "list session ids")
	}
	return ids, nil
}

func (r *SessionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Session{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(ConvertErrorType(err), "count sessions")
	}
	return count, nil
}
