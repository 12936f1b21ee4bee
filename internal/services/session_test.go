package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/repositories"
	"github.com/fsdevblog/snipshare/internal/services/mocks"
	"github.com/fsdevblog/snipshare/internal/shortcode"
	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type SessionServiceSuite struct {
	suite.Suite
	env *testEnv
}

func (s *SessionServiceSuite) SetupTest() {
	s.env = newTestEnv(s.T())
}

func (s *SessionServiceSuite) TestCreate() {
	session, err := s.env.sessions.Create(s.T().Context())
	s.Require().NoError(err)

	s.True(shortcode.IsValid(session.ID))
	s.Empty(session.Snippets)
	s.NotNil(session.Snippets)
	s.Empty(session.Images)
	s.Equal(models.InitialRevision, session.Revision)
	s.Equal(session.CreatedAt, session.LastUpdated)
	s.Equal(session.CreatedAt.Add(models.DefaultRetention), session.ExpiresAt)

	cached, ok := s.env.cache.Get(s.T().Context(), session.ID)
	s.Require().True(ok)
	s.Equal(session.ID, cached.ID)
}

func (s *SessionServiceSuite) TestAddSnippetScenario() {
	ctx := s.T().Context()
	session, err := s.env.sessions.Create(ctx)
	s.Require().NoError(err)

	s.env.clock.Advance(time.Minute)
	snippet, updated, err := s.env.sessions.AddSnippet(ctx, session.ID, SnippetInput{
		Code:     "print('hi')",
		Language: "python",
	})
	s.Require().NoError(err)
	s.Equal("python", snippet.Language)
	s.Equal(models.InitialRevision+1, updated.Revision)
	s.True(updated.LastUpdated.After(session.LastUpdated))

	got, err := s.env.sessions.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Snippets, 1)
	s.Equal("print('hi')", got.Snippets[0].Code)
	s.Equal("python", got.Snippets[0].Language)

	// сниппет также доступен по собственной ссылке
	standalone, err := s.env.snippets.View(ctx, snippet.ID)
	s.Require().NoError(err)
	s.Equal(snippet.Code, standalone.Code)
}

func (s *SessionServiceSuite) TestAddImage() {
	ctx := s.T().Context()
	session, err := s.env.sessions.Create(ctx)
	s.Require().NoError(err)

	img, updated, err := s.env.sessions.AddImage(ctx, session.ID, pngUpload(s.T(), "cat.png"))
	s.Require().NoError(err)
	s.Require().Len(updated.Images, 1)
	s.Equal(img.ID, updated.Images[0].ID)

	_, rc, err := s.env.images.Open(ctx, img.ID)
	s.Require().NoError(err)
	s.NotEmpty(readAll(s.T(), rc))
}

func (s *SessionServiceSuite) TestAddToMissingSession() {
	ctx := s.T().Context()
	_, _, err := s.env.sessions.AddSnippet(ctx, "nosuch", SnippetInput{Code: "x"})
	s.Require().ErrorIs(err, ErrRecordNotFound)

	_, _, err = s.env.sessions.AddImage(ctx, "nosuch", pngUpload(s.T(), "cat.png"))
	s.Require().ErrorIs(err, ErrRecordNotFound)

	// ничего не должно было создаться
	s.Zero(s.env.store.Snippets.Len())
	s.Zero(s.env.store.Images.Len())
}

func (s *SessionServiceSuite) TestRemove() {
	ctx := s.T().Context()
	session, err := s.env.sessions.Create(ctx)
	s.Require().NoError(err)
	snippet, _, err := s.env.sessions.AddSnippet(ctx, session.ID, SnippetInput{Code: "a"})
	s.Require().NoError(err)
	img, _, err := s.env.sessions.AddImage(ctx, session.ID, pngUpload(s.T(), "cat.png"))
	s.Require().NoError(err)

	before, err := s.env.sessions.Get(ctx, session.ID)
	s.Require().NoError(err)

	_, err = s.env.sessions.RemoveSnippet(ctx, session.ID, "zzzzzz")
	s.Require().ErrorIs(err, ErrRecordNotFound)
	unchanged, err := s.env.sessionRepo.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(before.Revision, unchanged.Revision)
	s.Len(unchanged.Snippets, 1)

	updated, err := s.env.sessions.RemoveSnippet(ctx, session.ID, snippet.ID)
	s.Require().NoError(err)
	s.Empty(updated.Snippets)

	updated, err = s.env.sessions.RemoveImage(ctx, session.ID, img.ID)
	s.Require().NoError(err)
	s.Empty(updated.Images)

	_, err = s.env.sessions.RemoveImage(ctx, session.ID, img.ID)
	s.Require().ErrorIs(err, ErrRecordNotFound)

	// изображение удаляется только из сессии
	_, rc, err := s.env.images.Open(ctx, img.ID)
	s.Require().NoError(err)
	s.Require().NoError(rc.Close())

	cached, ok := s.env.cache.Get(ctx, session.ID)
	s.Require().True(ok)
	s.Equal(updated.Revision, cached.Revision)
}

func (s *SessionServiceSuite) TestConcurrentAppends() {
	ctx := s.T().Context()
	session, err := s.env.sessions.Create(ctx)
	s.Require().NoError(err)

	const writers = 4
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, appendErr := s.env.sessions.AppendSnippet(ctx, session.ID, models.Snippet{ID: string(rune('a'+i)) + "aaaaa"})
			s.NoError(appendErr)
		}()
	}
	wg.Wait()

	got, err := s.env.sessions.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Len(got.Snippets, writers)
}

func (s *SessionServiceSuite) TestGetExpired() {
	ctx := s.T().Context()
	session, err := s.env.sessions.Create(ctx)
	s.Require().NoError(err)

	s.env.clock.Advance(models.DefaultRetention)

	_, err = s.env.sessions.Get(ctx, session.ID)
	s.Require().ErrorIs(err, ErrRecordNotFound)
	s.False(s.env.store.Sessions.IsExist(session.ID))
	_, cached := s.env.cache.Get(ctx, session.ID)
	s.False(cached)

	_, err = s.env.sessions.AppendSnippet(ctx, session.ID, models.Snippet{ID: "aaaaaa"})
	s.Require().ErrorIs(err, ErrRecordNotFound)
	s.False(s.env.store.Sessions.IsExist(session.ID), "append must not resurrect the session")
}

func TestSessionServiceSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceSuite))
}

func TestSessionService_GetExpiredDeletesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSessionRepository(ctrl)
	cache := mocks.NewMockSessionCache(ctrl)
	codes := mocks.NewMockCodeAllocator(ctrl)
	svc := NewSessionService(repo, cache, codes, nil, nil, zap.NewNop())

	expired := &models.Session{ID: "abcdef", Revision: 3, ExpiresAt: time.Now().Add(-time.Hour)}
	cache.EXPECT().Get(gomock.Any(), "abcdef").Return(nil, false)
	repo.EXPECT().Get(gomock.Any(), "abcdef").Return(expired, nil)
	cache.EXPECT().Delete(gomock.Any(), "abcdef")
	repo.EXPECT().DeleteIfExpired(gomock.Any(), "abcdef", uint64(3), gomock.Any()).Return(true, nil).Times(1)
	codes.EXPECT().Remove("abcdef")

	_, err := svc.Get(t.Context(), "abcdef")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSessionService_GetServedFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSessionRepository(ctrl)
	cache := mocks.NewMockSessionCache(ctrl)
	svc := NewSessionService(repo, cache, mocks.NewMockCodeAllocator(ctrl), nil, nil, zap.NewNop())

	cached := &models.Session{ID: "abcdef", Revision: 2, ExpiresAt: time.Now().Add(time.Hour)}
	cache.EXPECT().Get(gomock.Any(), "abcdef").Return(cached, true)
	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

	got, err := svc.Get(t.Context(), "abcdef")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Revision)
	assert.NotNil(t, got.Snippets)
}

func TestSessionService_MutateRetriesOnStaleRevision(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSessionRepository(ctrl)
	cache := mocks.NewMockSessionCache(ctrl)
	svc := NewSessionService(repo, cache, mocks.NewMockCodeAllocator(ctrl), nil, nil, zap.NewNop())

	fresh := func(rev uint64) *models.Session {
		return &models.Session{ID: "abcdef", Revision: rev, ExpiresAt: time.Now().Add(time.Hour)}
	}
	gomock.InOrder(
		repo.EXPECT().Get(gomock.Any(), "abcdef").Return(fresh(1), nil),
		repo.EXPECT().Replace(gomock.Any(), gomock.Any()).Return(repositories.ErrStaleRevision),
		repo.EXPECT().Get(gomock.Any(), "abcdef").Return(fresh(2), nil),
		repo.EXPECT().Replace(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, s *models.Session) error {
			s.Revision++
			return nil
		}),
	)
	cache.EXPECT().SetIfNewer(gomock.Any(), "abcdef", gomock.Any(), uint64(3))

	got, err := svc.AppendSnippet(t.Context(), "abcdef", models.Snippet{ID: "snip01"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Revision)
	assert.Len(t, got.Snippets, 1)
}

func TestSessionService_MutateGivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSessionRepository(ctrl)
	svc := NewSessionService(repo, mocks.NewMockSessionCache(ctrl), mocks.NewMockCodeAllocator(ctrl), nil, nil, zap.NewNop())

	repo.EXPECT().Get(gomock.Any(), "abcdef").DoAndReturn(func(_ any, _ string) (*models.Session, error) {
		return &models.Session{ID: "abcdef", Revision: 1, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}).Times(maxMutateAttempts)
	repo.EXPECT().Replace(gomock.Any(), gomock.Any()).Return(repositories.ErrStaleRevision).Times(maxMutateAttempts)

	_, err := svc.AppendSnippet(t.Context(), "abcdef", models.Snippet{ID: "snip01"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestSessionService_StorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSessionRepository(ctrl)
	svc := NewSessionService(repo, mocks.NewMockSessionCache(ctrl), mocks.NewMockCodeAllocator(ctrl), nil, nil, zap.NewNop())

	repo.EXPECT().Get(gomock.Any(), "abcdef").Return(nil, errors.New("connection reset"))
	_, err := svc.RemoveSnippet(t.Context(), "abcdef", "snip01")
	require.ErrorIs(t, err, ErrStorage)
}

// heldCache задерживает запись выбранной ревизии в кеш, пока не закрыт release.
type heldCache struct {
	SessionCache
	holdRevision uint64
	held         chan struct{}
	release      chan struct{}
}

func (c *heldCache) SetIfNewer(ctx context.Context, key string, session *models.Session, revision uint64) {
	if revision == c.holdRevision {
		close(c.held)
		<-c.release
	}
	c.SessionCache.SetIfNewer(ctx, key, session, revision)
}

func TestSessionService_CacheKeepsNewestRevision(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	held := &heldCache{
		SessionCache: env.cache,
		holdRevision: models.InitialRevision + 1,
		held:         make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc := NewSessionService(env.sessionRepo, held, env.codes, env.snippets, env.images, zap.NewNop(),
		WithClock(env.clock.Now))

	session, err := svc.Create(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, appendErr := svc.AppendSnippet(ctx, session.ID, models.Snippet{ID: "aaaaaa"})
		done <- appendErr
	}()
	<-held.held

	second, err := svc.AppendSnippet(ctx, session.ID, models.Snippet{ID: "bbbbbb"})
	require.NoError(t, err)
	require.Equal(t, models.InitialRevision+2, second.Revision)

	close(held.release)
	require.NoError(t, <-done)

	got, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InitialRevision+2, got.Revision)
	require.Len(t, got.Snippets, 2)
}

// conflictingSessions репозиторий, в котором каждая условная запись проигрывает конкурентной.
type conflictingSessions struct {
	SessionRepository
}

func (conflictingSessions) Replace(context.Context, *models.Session) error {
	return repositories.ErrStaleRevision
}

func TestSessionService_AddDiscardsEntityOnAppendFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	svc := NewSessionService(conflictingSessions{env.sessionRepo}, env.cache, env.codes, env.snippets, env.images,
		zap.NewNop(), WithClock(env.clock.Now))

	session, err := svc.Create(ctx)
	require.NoError(t, err)
	codesBefore := env.codes.Len()

	_, _, err = svc.AddSnippet(ctx, session.ID, SnippetInput{Code: "fmt.Println(1)"})
	require.ErrorIs(t, err, ErrConflict)

	_, _, err = svc.AddImage(ctx, session.ID, pngUpload(t, "cat.png"))
	require.ErrorIs(t, err, ErrConflict)

	stats, err := env.stats.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSnippets)
	assert.Zero(t, stats.TotalImages)
	assert.Equal(t, codesBefore, env.codes.Len(), "codes of discarded entities must be released")

	files, err := afero.Glob(env.fs, "/uploads/images/*")
	require.NoError(t, err)
	assert.Empty(t, files)
}
