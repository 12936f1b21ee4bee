package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/snipshare/internal/db/memory"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/repositories"
)

// SessionRepo репозиторий документов сессий в памяти.
type SessionRepo struct {
	s *memory.MStorage
}

func NewSessionRepo(store *memory.MStorage) *SessionRepo {
	return &SessionRepo{s: store}
}

func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	if err := memory.Set(ctx, session.ID, session, r.s); err != nil {
		return fmt.Errorf("failed to create session %s: %w", session.ID, convertErrorType(err))
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := memory.Get[models.Session](ctx, id, r.s)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, convertErrorType(err))
	}
	return session, nil
}

// Replace перезаписывает документ целиком, если сохраненная ревизия совпадает с session.Revision.
// При успехе session.Revision увеличивается на единицу.
// Документ никогда не создается заново: если его нет, вернется repositories.ErrNotFound.
func (r *SessionRepo) Replace(ctx context.Context, session *models.Session) error {
	expected := session.Revision
	_, err := memory.Update[models.Session](ctx, session.ID, r.s, func(stored *models.Session) error {
		if stored.Revision != expected {
			return repositories.ErrStaleRevision
		}
		*stored = *session
		stored.Revision = expected + 1
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace session %s: %w", session.ID, convertErrorType(err))
	}
	session.Revision = expected + 1
	return nil
}

// DeleteIfExpired удаляет документ, только если он все ещё в ревизии revision и его срок истек к now.
func (r *SessionRepo) DeleteIfExpired(ctx context.Context, id string, revision uint64, now time.Time) (bool, error) {
	deleted, err := memory.DeleteIf[models.Session](ctx, id, r.s, func(s *models.Session) bool {
		return s.Revision == revision && s.IsExpired(now)
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete session %s: %w", id, convertErrorType(err))
	}
	return deleted, nil
}

func (r *SessionRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Session, error) {
	sessions, err := memory.FilterAll[models.Session](ctx, r.s, func(s models.Session) bool {
		return s.IsExpired(now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", convertErrorType(err))
	}
	return sessions, nil
}

func (r *SessionRepo) IDs(_ context.Context) ([]string, error) {
	return r.s.Keys(), nil
}

func (r *SessionRepo) Count(_ context.Context) (int64, error) {
	return int64(r.s.Len()), nil
}
