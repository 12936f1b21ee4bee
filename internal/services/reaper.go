package services

import (
	"context"
	"time"

	"github.com/fsdevblog/snipshare/internal/blob"
	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/fsdevblog/snipshare/internal/repositories"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultReaperInterval как часто запускать очистку.
const DefaultReaperInterval = time.Hour

// SweepReport итог одного прохода очистки.
type SweepReport struct {
	Snippets int // Удалено сниппетов
	Images   int // Удалено изображений
	Sessions int // Удалено сессий
	Failed   int // Сущностей, которые не удалось удалить
}

// Removed общее количество удаленных сущностей.
func (r SweepReport) Removed() int {
	return r.Snippets + r.Images + r.Sessions
}

// Reaper периодически удаляет сущности с истекшим сроком хранения.
//
// Удаление условное: документ сессии, изменённый после чтения, не удаляется.
// Ошибки по отдельным сущностям логируются и не прерывают проход.
type Reaper struct {
	snippets SnippetRepository
	images   ImageRepository
	sessions SessionRepository
	blobs    BlobStore
	cache    SessionCache
	codes    CodeAllocator
	interval time.Duration
	opts     Options
	logger   *zap.Logger
}

type ReaperParams struct {
	Snippets SnippetRepository
	Images   ImageRepository
	Sessions SessionRepository
	Blobs    BlobStore
	Cache    SessionCache
	Codes    CodeAllocator
	Interval time.Duration
	Logger   *zap.Logger
}

func NewReaper(p ReaperParams, opts ...func(*Options)) *Reaper {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &Reaper{
		snippets: p.Snippets,
		images:   p.Images,
		sessions: p.Sessions,
		blobs:    p.Blobs,
		cache:    p.Cache,
		codes:    p.Codes,
		interval: interval,
		opts:     buildOptions(opts),
		logger:   p.Logger,
	}
}

// Run выполняет проход сразу и затем каждые interval, пока не отменен ctx.
func (r *Reaper) Run(ctx context.Context) {
	r.sweepAndLog(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.sweepAndLog(ctx)
		}
	}
}

func (r *Reaper) sweepAndLog(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	report := r.Sweep(sweepCtx)
	if report.Removed() > 0 || report.Failed > 0 {
		r.logger.Info("expired items cleaned up",
			zap.Int("removed", report.Removed()),
			zap.Int("snippets", report.Snippets),
			zap.Int("images", report.Images),
			zap.Int("sessions", report.Sessions),
			zap.Int("failed", report.Failed),
		)
	}
}

// Sweep выполняет один проход очистки.
func (r *Reaper) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	now := r.opts.now()

	r.sweepSessions(ctx, now, &report)
	r.sweepSnippets(ctx, now, &report)
	r.sweepImages(ctx, now, &report)
	return report
}

func (r *Reaper) sweepSessions(ctx context.Context, now time.Time, report *SweepReport) {
	sessions, err := r.sessions.ListExpired(ctx, now)
	if err != nil {
		r.logger.Error("list expired sessions", zap.Error(err))
		report.Failed++
		return
	}
	for _, s := range sessions {
		deleted, delErr := r.sessions.DeleteIfExpired(ctx, s.ID, s.Revision, now)
		if r.handleDelete("session", s.ID, delErr, report) && deleted {
			r.cache.Delete(ctx, s.ID)
			r.codes.Remove(s.ID)
			report.Sessions++
		}
	}
}

func (r *Reaper) sweepSnippets(ctx context.Context, now time.Time, report *SweepReport) {
	snippets, err := r.snippets.ListExpired(ctx, now)
	if err != nil {
		r.logger.Error("list expired snippets", zap.Error(err))
		report.Failed++
		return
	}
	for _, s := range snippets {
		deleted, delErr := r.snippets.DeleteIfExpired(ctx, s.ID, now)
		if r.handleDelete("snippet", s.ID, delErr, report) && deleted {
			r.codes.Remove(s.ID)
			report.Snippets++
		}
	}
}

func (r *Reaper) sweepImages(ctx context.Context, now time.Time, report *SweepReport) {
	images, err := r.images.ListExpired(ctx, now)
	if err != nil {
		r.logger.Error("list expired images", zap.Error(err))
		report.Failed++
		return
	}
	for _, img := range images {
		deleted, delErr := r.images.DeleteIfExpired(ctx, img.ID, now)
		if !r.handleDelete("image", img.ID, delErr, report) || !deleted {
			continue
		}
		r.codes.Remove(img.ID)
		report.Images++
		if blobErr := r.blobs.Delete(ctx, img.Path); blobErr != nil && !errors.Is(blobErr, blob.ErrNotFound) {
			r.logger.Error("delete expired image payload", logs.ImageID(img.ID), zap.String("path", img.Path), zap.Error(blobErr))
			report.Failed++
		}
	}
}

// handleDelete логирует ошибку удаления. Возвращает true, если ошибки не было.
// Запись, которую уже удалил кто-то другой, ошибкой не считается.
func (r *Reaper) handleDelete(kind, id string, err error, report *SweepReport) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return false
	}
	r.logger.Error("delete expired "+kind, logs.EntityID(kind, id), zap.Error(err))
	report.Failed++
	return false
}
