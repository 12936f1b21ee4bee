package services

import (
	"context"

	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/repositories"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultRecentLimit сколько последних сниппетов отдавать по умолчанию.
	DefaultRecentLimit = 10
	// maxCreateAttempts сколько раз пробовать новый код, если хранилище сообщило о дубликате.
	maxCreateAttempts = 3
)

// SnippetInput данные для создания сниппета.
type SnippetInput struct {
	Code        string `json:"code"`
	Language    string `json:"language"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SnippetService Сервис работает со standalone сниппетами.
type SnippetService struct {
	repo   SnippetRepository
	codes  CodeAllocator
	opts   Options
	logger *zap.Logger
}

func NewSnippetService(
	repo SnippetRepository,
	codes CodeAllocator,
	logger *zap.Logger,
	opts ...func(*Options),
) *SnippetService {
	return &SnippetService{
		repo:   repo,
		codes:  codes,
		opts:   buildOptions(opts),
		logger: logger,
	}
}

// Create валидирует ввод, выделяет короткий код и сохраняет сниппет.
func (s *SnippetService) Create(ctx context.Context, in SnippetInput) (*models.Snippet, error) {
	if in.Code == "" {
		return nil, errors.Wrap(ErrValidation, "code content is required")
	}

	now := s.opts.now()
	for range maxCreateAttempts {
		res := s.codes.Next()
		snippet := &models.Snippet{
			ID:          res.Code,
			Code:        in.Code,
			Language:    in.Language,
			Title:       in.Title,
			Description: in.Description,
			CreatedAt:   now,
			ExpiresAt:   models.ExpiresAt(now, s.opts.Retention),
		}
		snippet.ApplyDefaults()

		err := s.repo.Create(ctx, snippet)
		if err == nil {
			return snippet, nil
		}
		if errors.Is(err, repositories.ErrDuplicateKey) {
			s.logger.Warn("snippet id already taken in storage", logs.SnippetID(res.Code))
			continue
		}
		s.codes.Remove(res.Code)
		return nil, errors.Wrapf(ErrStorage, "create snippet: %s", err.Error())
	}
	return nil, errors.Wrap(ErrStorage, "create snippet: no free id")
}

// View возвращает сниппет, предварительно увеличив счетчик просмотров.
// Сниппет с истекшим сроком хранения удаляется, а вызывающему возвращается ErrRecordNotFound.
func (s *SnippetService) View(ctx context.Context, id string) (*models.Snippet, error) {
	snippet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, convertRepoErr(err, "snippet", id)
	}
	if now := s.opts.now(); snippet.IsExpired(now) {
		s.expire(ctx, id)
		return nil, errors.Wrapf(ErrRecordNotFound, "snippet %s expired", id)
	}

	viewed, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, convertRepoErr(err, "snippet", id)
	}
	return viewed, nil
}

// Recent возвращает последние созданные сниппеты с неистекшим сроком хранения.
func (s *SnippetService) Recent(ctx context.Context, limit int) ([]models.Snippet, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	snippets, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "list recent snippets: %s", err.Error())
	}
	now := s.opts.now()
	alive := make([]models.Snippet, 0, len(snippets))
	for _, sn := range snippets {
		if !sn.IsExpired(now) {
			alive = append(alive, sn)
		}
	}
	return alive, nil
}

// discard удаляет только что созданный сниппет, который не удалось прикрепить к сессии.
func (s *SnippetService) discard(ctx context.Context, id string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("discard snippet", logs.SnippetID(id), zap.Error(err))
		}
		return
	}
	s.codes.Remove(id)
}

func (s *SnippetService) expire(ctx context.Context, id string) {
	deleted, err := s.repo.DeleteIfExpired(ctx, id, s.opts.now())
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("delete expired snippet", logs.SnippetID(id), zap.Error(err))
		}
		return
	}
	if deleted {
		s.codes.Remove(id)
	}
}

// convertRepoErr переводит ошибку репозитория в ошибку сервисного слоя.
func convertRepoErr(err error, kind, id string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return errors.Wrapf(ErrRecordNotFound, "%s %s not found", kind, id)
	}
	return errors.Wrapf(ErrStorage, "%s %s: %s", kind, id, err.Error())
}
