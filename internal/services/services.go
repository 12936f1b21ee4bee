package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/snipshare/internal/db"
	"github.com/fsdevblog/snipshare/internal/repositories/memstore"
	"github.com/fsdevblog/snipshare/internal/repositories/sql"
	"github.com/fsdevblog/snipshare/internal/shortcode"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceType string

const (
	ServiceTypeSQL      ServiceType = "sql"
	ServiceTypeInMemory ServiceType = "inMemory"
)

type Services struct {
	SnippetService *SnippetService
	ImageService   *ImageService
	SessionService *SessionService
	StatsService   *StatsService
	PingService    *PingService
	Reaper         *Reaper
	Codes          *shortcode.Registry
}

// Deps зависимости сервисного слоя, не связанные с хранилищем документов.
type Deps struct {
	Cache          SessionCache
	Blobs          BlobStore
	Pingers        []Pinger // Дополнительные проверки для /ping помимо хранилища документов
	ReaperInterval time.Duration
	Logger         *zap.Logger
	RepoLogger     *logrus.Logger
	Options        []func(*Options)
}

type repos struct {
	snippets SnippetRepository
	images   ImageRepository
	sessions SessionRepository
	pinger   Pinger
}

// Factory собирает сервисный слой поверх подключения conn, полученного из db.NewConnectionFactory.
// Реестр коротких кодов заполняется идентификаторами, уже лежащими в хранилище.
func Factory(ctx context.Context, conn any, sType ServiceType, deps Deps) (*Services, error) {
	var r repos
	switch sType {
	case ServiceTypeSQL:
		gormDB, ok := conn.(*gorm.DB)
		if !ok {
			return nil, errors.New("invalid connection type. expected *gorm.DB")
		}
		r = getSQLRepos(gormDB, deps.RepoLogger)
	case ServiceTypeInMemory:
		store, ok := conn.(*db.MemoryStorage)
		if !ok {
			return nil, errors.New("invalid connection type. expected *db.MemoryStorage")
		}
		r = getInMemoryRepos(store)
	default:
		return nil, fmt.Errorf("unknown service type: %s", sType)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	codes := shortcode.NewRegistry(shortcode.NewAllocator(), logger.Named("shortcode"))
	if err := seedRegistry(ctx, codes, r); err != nil {
		return nil, err
	}

	snippets := NewSnippetService(r.snippets, codes, logger.Named("snippets"), deps.Options...)
	images := NewImageService(r.images, deps.Blobs, codes, logger.Named("images"), deps.Options...)
	return &Services{
		SnippetService: snippets,
		ImageService:   images,
		SessionService: NewSessionService(
			r.sessions, deps.Cache, codes, snippets, images, logger.Named("sessions"), deps.Options...,
		),
		StatsService: NewStatsService(r.snippets, r.images, r.sessions, codes),
		PingService:  NewPingService(append([]Pinger{r.pinger}, deps.Pingers...)...),
		Reaper: NewReaper(ReaperParams{
			Snippets: r.snippets,
			Images:   r.images,
			Sessions: r.sessions,
			Blobs:    deps.Blobs,
			Cache:    deps.Cache,
			Codes:    codes,
			Interval: deps.ReaperInterval,
			Logger:   logger.Named("reaper"),
		}, deps.Options...),
		Codes: codes,
	}, nil
}

func getSQLRepos(conn *gorm.DB, logger *logrus.Logger) repos {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return repos{
		snippets: sql.NewSnippetRepo(conn, logger),
		images:   sql.NewImageRepo(conn, logger),
		sessions: sql.NewSessionRepo(conn, logger),
		pinger:   db.SQLPinger{DB: conn},
	}
}

func getInMemoryRepos(store *db.MemoryStorage) repos {
	return repos{
		snippets: memstore.NewSnippetRepo(store.Snippets),
		images:   memstore.NewImageRepo(store.Images),
		sessions: memstore.NewSessionRepo(store.Sessions),
		pinger:   store,
	}
}

// seedRegistry регистрирует все идентификаторы, уже занятые в хранилище.
func seedRegistry(ctx context.Context, codes *shortcode.Registry, r repos) error {
	for _, list := range []func(context.Context) ([]string, error){r.snippets.IDs, r.images.IDs, r.sessions.IDs} {
		ids, err := list(ctx)
		if err != nil {
			return fmt.Errorf("seed short codes: %w", err)
		}
		codes.Add(ids...)
	}
	return nil
}
