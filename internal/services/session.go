package services

import (
	"context"

	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/repositories"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxMutateAttempts сколько раз перечитывать документ при конфликте ревизий.
const maxMutateAttempts = 5

// SessionService Сервис управляет документами сессий.
//
// Чтение идет через кеш, запись всегда начинается с чтения из хранилища и завершается
// условной записью по ревизии. Кеш получает документ вместе с ревизией и не откатывается
// на более старую версию, в каком бы порядке ни завершились конкурентные записи.
type SessionService struct {
	repo     SessionRepository
	cache    SessionCache
	codes    CodeAllocator
	snippets *SnippetService
	images   *ImageService
	opts     Options
	logger   *zap.Logger
}

func NewSessionService(
	repo SessionRepository,
	cache SessionCache,
	codes CodeAllocator,
	snippets *SnippetService,
	images *ImageService,
	logger *zap.Logger,
	opts ...func(*Options),
) *SessionService {
	return &SessionService{
		repo:     repo,
		cache:    cache,
		codes:    codes,
		snippets: snippets,
		images:   images,
		opts:     buildOptions(opts),
		logger:   logger,
	}
}

// Create создает пустую сессию.
func (s *SessionService) Create(ctx context.Context) (*models.Session, error) {
	now := s.opts.now()
	for range maxCreateAttempts {
		code := s.codes.Next().Code
		session := &models.Session{
			ID:          code,
			Snippets:    []models.Snippet{},
			Images:      []models.ImageAsset{},
			CreatedAt:   now,
			LastUpdated: now,
			ExpiresAt:   models.ExpiresAt(now, s.opts.Retention),
			Revision:    models.InitialRevision,
		}
		err := s.repo.Create(ctx, session)
		if err == nil {
			s.cache.SetIfNewer(ctx, session.ID, session, session.Revision)
			return session, nil
		}
		if errors.Is(err, repositories.ErrDuplicateKey) {
			s.logger.Warn("session id already taken in storage", logs.SessionID(code))
			continue
		}
		s.codes.Remove(code)
		return nil, errors.Wrapf(ErrStorage, "create session: %s", err.Error())
	}
	return nil, errors.Wrap(ErrStorage, "create session: no free id")
}

// Get возвращает документ сессии: из кеша, а при промахе из хранилища с заполнением кеша.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	now := s.opts.now()
	if cached, ok := s.cache.Get(ctx, id); ok {
		if !cached.IsExpired(now) {
			return normalize(cached), nil
		}
		s.cache.Delete(ctx, id)
	}

	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, convertRepoErr(err, "session", id)
	}
	if session.IsExpired(now) {
		s.expire(ctx, session)
		return nil, errors.Wrapf(ErrRecordNotFound, "session %s expired", id)
	}
	normalize(session)
	s.cache.SetIfNewer(ctx, id, session, session.Revision)
	return session, nil
}

// AppendSnippet добавляет сниппет в сессию.
func (s *SessionService) AppendSnippet(ctx context.Context, sessionID string, snippet models.Snippet) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(doc *models.Session) error {
		doc.Snippets = append(doc.Snippets, snippet)
		return nil
	})
}

// AppendImage добавляет изображение в сессию.
func (s *SessionService) AppendImage(ctx context.Context, sessionID string, image models.ImageAsset) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(doc *models.Session) error {
		doc.Images = append(doc.Images, image)
		return nil
	})
}

// RemoveSnippet удаляет сниппет из сессии. Сам сниппет продолжает жить до истечения срока.
func (s *SessionService) RemoveSnippet(ctx context.Context, sessionID, snippetID string) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(doc *models.Session) error {
		if !doc.RemoveSnippet(snippetID) {
			return errors.Wrapf(ErrRecordNotFound, "snippet %s not found in session %s", snippetID, sessionID)
		}
		return nil
	})
}

// RemoveImage удаляет изображение из сессии. Файл изображения живет до истечения срока.
func (s *SessionService) RemoveImage(ctx context.Context, sessionID, imageID string) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(doc *models.Session) error {
		if !doc.RemoveImage(imageID) {
			return errors.Wrapf(ErrRecordNotFound, "image %s not found in session %s", imageID, sessionID)
		}
		return nil
	})
}

// AddSnippet создает standalone сниппет и добавляет его в сессию.
// Если добавить не удалось, созданный сниппет удаляется.
func (s *SessionService) AddSnippet(
	ctx context.Context,
	sessionID string,
	in SnippetInput,
) (*models.Snippet, *models.Session, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	snippet, err := s.snippets.Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.AppendSnippet(ctx, sessionID, *snippet)
	if err != nil {
		s.snippets.discard(context.WithoutCancel(ctx), snippet.ID)
		return nil, nil, err
	}
	return snippet, session, nil
}

// AddImage загружает изображение и добавляет его в сессию.
// Если добавить не удалось, загруженное изображение удаляется.
func (s *SessionService) AddImage(
	ctx context.Context,
	sessionID string,
	in ImageUpload,
) (*models.ImageAsset, *models.Session, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	image, err := s.images.Upload(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.AppendImage(ctx, sessionID, *image)
	if err != nil {
		s.images.discard(context.WithoutCancel(ctx), image)
		return nil, nil, err
	}
	return image, session, nil
}

// mutate читает свежий документ из хранилища, применяет fn и записывает результат условно по ревизии.
// При конфликте ревизий попытка повторяется с новым чтением.
func (s *SessionService) mutate(
	ctx context.Context,
	id string,
	fn func(doc *models.Session) error,
) (*models.Session, error) {
	for attempt := 1; attempt <= maxMutateAttempts; attempt++ {
		doc, err := s.repo.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				s.cache.Delete(ctx, id)
			}
			return nil, convertRepoErr(err, "session", id)
		}
		now := s.opts.now()
		if doc.IsExpired(now) {
			s.expire(ctx, doc)
			return nil, errors.Wrapf(ErrRecordNotFound, "session %s expired", id)
		}
		normalize(doc)

		if fnErr := fn(doc); fnErr != nil {
			return nil, fnErr
		}
		if now.After(doc.LastUpdated) {
			doc.LastUpdated = now
		}

		err = s.repo.Replace(ctx, doc)
		switch {
		case err == nil:
			s.cache.SetIfNewer(ctx, id, doc, doc.Revision)
			return doc, nil
		case errors.Is(err, repositories.ErrStaleRevision):
			s.logger.Debug("session revision conflict, retrying",
				logs.SessionID(id),
				logs.Revision(doc.Revision),
				zap.Int("attempt", attempt),
			)
			continue
		case errors.Is(err, repositories.ErrNotFound):
			s.cache.Delete(ctx, id)
			return nil, errors.Wrapf(ErrRecordNotFound, "session %s not found", id)
		default:
			return nil, errors.Wrapf(ErrStorage, "replace session %s: %s", id, err.Error())
		}
	}
	return nil, errors.Wrapf(ErrConflict, "session %s: too many concurrent updates", id)
}

// expire удаляет документ с истекшим сроком, если он не изменился с момента чтения.
func (s *SessionService) expire(ctx context.Context, doc *models.Session) {
	s.cache.Delete(ctx, doc.ID)
	deleted, err := s.repo.DeleteIfExpired(ctx, doc.ID, doc.Revision, s.opts.now())
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("delete expired session", logs.SessionID(doc.ID), logs.Revision(doc.Revision), zap.Error(err))
		}
		return
	}
	if deleted {
		s.codes.Remove(doc.ID)
	}
}

// normalize гарантирует, что списки документа сериализуются как [], а не null.
func normalize(doc *models.Session) *models.Session {
	if doc.Snippets == nil {
		doc.Snippets = []models.Snippet{}
	}
	if doc.Images == nil {
		doc.Images = []models.ImageAsset{}
	}
	return doc
}
