package services

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/snipshare/internal/blob"
	"github.com/fsdevblog/snipshare/internal/cache"
	"github.com/fsdevblog/snipshare/internal/db"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/repositories/memstore"
	"github.com/fsdevblog/snipshare/internal/shortcode"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock управляемый источник времени.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv сервисы поверх настоящих in-memory репозиториев.
type testEnv struct {
	clock    *fakeClock
	store    *db.MemoryStorage
	fs       afero.Fs
	blobs    *blob.FSStore
	cache    *cache.LRUCache[models.Session]
	codes    *shortcode.Registry
	snippets *SnippetService
	images   *ImageService
	sessions *SessionService
	reaper   *Reaper
	stats    *StatsService

	snippetRepo *memstore.SnippetRepo
	imageRepo   *memstore.ImageRepo
	sessionRepo *memstore.SessionRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		clock: newFakeClock(),
		store: db.NewMemStorage(),
		fs:    afero.NewMemMapFs(),
	}
	var err error
	env.blobs, err = blob.NewFSStore(env.fs, "/uploads")
	require.NoError(t, err)

	logger := zap.NewNop()
	opts := []func(*Options){WithClock(env.clock.Now), WithMaxUploadSize(1 << 20)}

	env.cache = cache.NewLRUCache[models.Session](100, time.Hour, logger)
	env.codes = shortcode.NewRegistry(shortcode.NewAllocator(), logger)
	env.snippetRepo = memstore.NewSnippetRepo(env.store.Snippets)
	env.imageRepo = memstore.NewImageRepo(env.store.Images)
	env.sessionRepo = memstore.NewSessionRepo(env.store.Sessions)

	env.snippets = NewSnippetService(env.snippetRepo, env.codes, logger, opts...)
	env.images = NewImageService(env.imageRepo, env.blobs, env.codes, logger, opts...)
	env.sessions = NewSessionService(env.sessionRepo, env.cache, env.codes, env.snippets, env.images, logger, opts...)
	env.reaper = NewReaper(ReaperParams{
		Snippets: env.snippetRepo,
		Images:   env.imageRepo,
		Sessions: env.sessionRepo,
		Blobs:    env.blobs,
		Cache:    env.cache,
		Codes:    env.codes,
		Logger:   logger,
	}, opts...)
	env.stats = NewStatsService(env.snippetRepo, env.imageRepo, env.sessionRepo, env.codes)
	return env
}

// pngBytes возвращает корректный png размером w x h.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// jpegBytes возвращает корректный jpeg.
func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func pngUpload(t *testing.T, name string) ImageUpload {
	t.Helper()
	payload := pngBytes(t, 16, 16)
	return ImageUpload{
		OriginalName: name,
		Size:         int64(len(payload)),
		Content:      bytes.NewReader(payload),
	}
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}
