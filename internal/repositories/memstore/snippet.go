package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fsdevblog/snipshare/internal/db/memory"
	"github.com/fsdevblog/snipshare/internal/models"
)

// SnippetRepo репозиторий сниппетов в памяти.
type SnippetRepo struct {
	s *memory.MStorage
}

func NewSnippetRepo(store *memory.MStorage) *SnippetRepo {
	return &SnippetRepo{s: store}
}

// Create сохраняет новый сниппет. Если id занят, вернется repositories.ErrDuplicateKey.
func (r *SnippetRepo) Create(ctx context.Context, snippet *models.Snippet) error {
	if err := memory.Set(ctx, snippet.ID, snippet, r.s); err != nil {
		return fmt.Errorf("failed to create snippet %s: %w", snippet.ID, convertErrorType(err))
	}
	return nil
}

func (r *SnippetRepo) Get(ctx context.Context, id string) (*models.Snippet, error) {
	snippet, err := memory.Get[models.Snippet](ctx, id, r.s)
	if err != nil {
		return nil, fmt.Errorf("failed to get snippet %s: %w", id, convertErrorType(err))
	}
	return snippet, nil
}

// IncrementViews атомарно увеличивает счетчик просмотров и возвращает обновленный сниппет.
func (r *SnippetRepo) IncrementViews(ctx context.Context, id string) (*models.Snippet, error) {
	snippet, err := memory.Update[models.Snippet](ctx, id, r.s, func(s *models.Snippet) error {
		s.Views++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to increment views of snippet %s: %w", id, convertErrorType(err))
	}
	return snippet, nil
}

// Delete удаляет запись безусловно. Если записи нет, вернется repositories.ErrNotFound.
func (r *SnippetRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete snippet %s: %w", id, convertErrorType(err))
	}
	return nil
}

// DeleteIfExpired удаляет сниппет, только если на момент now его срок хранения истек.
func (r *SnippetRepo) DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	deleted, err := memory.DeleteIf[models.Snippet](ctx, id, r.s, func(s *models.Snippet) bool {
		return s.IsExpired(now)
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete snippet %s: %w", id, convertErrorType(err))
	}
	return deleted, nil
}

func (r *SnippetRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Snippet, error) {
	snippets, err := memory.FilterAll[models.Snippet](ctx, r.s, func(s models.Snippet) bool {
		return s.IsExpired(now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expired snippets: %w", convertErrorType(err))
	}
	return snippets, nil
}

// ListRecent возвращает не более limit самых новых сниппетов.
func (r *SnippetRepo) ListRecent(ctx context.Context, limit int) ([]models.Snippet, error) {
	snippets, err := memory.GetAll[models.Snippet](ctx, r.s)
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", convertErrorType(err))
	}
	slices.SortFunc(snippets, func(a, b models.Snippet) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	if len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets, nil
}

func (r *SnippetRepo) IDs(_ context.Context) ([]string, error) {
	return r.s.Keys(), nil
}

func (r *SnippetRepo) Count(_ context.Context) (int64, error) {
	return int64(r.s.Len()), nil
}
