package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fsdevblog/snipshare/internal/blob"
	"github.com/fsdevblog/snipshare/internal/cache"
	"github.com/fsdevblog/snipshare/internal/config"
	"github.com/fsdevblog/snipshare/internal/controllers"
	"github.com/fsdevblog/snipshare/internal/db"
	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/services"
)

const (
	initTimeout       = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	// sessionCachePrefix префикс ключей сессий в Redis.
	sessionCachePrefix = "snipshare:session"
)

type App struct {
	config   config.Config
	services *services.Services
	Logger   *zap.Logger
	closers  []func() error
}

// New создает приложение: подключается к хранилищам и собирает сервисный слой.
func New(conf config.Config) (*App, error) {
	logger, err := logs.New(logs.WithLevel(conf.LogLevel), logs.WithName("snipshare"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{config: conf, Logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	dbServices, servicesErr := a.initServices(ctx)
	if servicesErr != nil {
		a.close()
		return nil, fmt.Errorf("init services: %w", servicesErr)
	}
	a.services = dbServices
	return a, nil
}

// Must вызывает панику если произошла ошибка.
func Must(a *App, err error) *App {
	if err != nil {
		panic(err)
	}
	return a
}

// Run запускает web сервер и фоновую очистку до получения SIGINT или SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext запускает web сервер и фоновую очистку до отмены ctx.
func (a *App) RunContext(ctx context.Context) error {
	defer a.close()

	router := controllers.SetupRouter(controllers.RouterParams{
		SnippetService: a.services.SnippetService,
		ImageService:   a.services.ImageService,
		SessionService: a.services.SessionService,
		StatsService:   a.services.StatsService,
		PingService:    a.services.PingService,
		AppConf:        a.config,
		Logger:         a.Logger.Named("http"),
	})

	server := &http.Server{
		Addr:              a.config.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	reaperCtx, reaperCancel := context.WithCancel(ctx)
	defer reaperCancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.services.Reaper.Run(reaperCtx)
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Shutdown command received")
	case serverErr = <-errChan:
		a.Logger.Error("server error", zap.Error(serverErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("graceful shutdown failed", zap.Error(err))
	}

	reaperCancel()
	wg.Wait()

	_ = a.Logger.Sync()
	return serverErr
}

// close закрывает подключения в обратном порядке.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close connection", zap.Error(err))
		}
	}
	a.closers = nil
}

// initServices создает подключения к хранилищам и возвращает сервисный слой приложения.
func (a *App) initServices(ctx context.Context) (*services.Services, error) {
	conf := a.config

	dbConn, connErr := db.NewConnectionFactory(ctx, db.FactoryConfig{
		StorageType:  storageType(conf.DBType),
		PostgresDSN:  &conf.DatabaseDSN,
		SqliteDBPath: &conf.SQLitePath,
	})
	if connErr != nil {
		return nil, connErr //nolint:wrapcheck
	}
	if gormDB, ok := dbConn.(*gorm.DB); ok {
		if sqlDB, err := gormDB.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
	}

	var pingers []services.Pinger

	sessionCache, cacheErr := a.initCache(ctx)
	if cacheErr != nil {
		return nil, cacheErr
	}
	pingers = append(pingers, sessionCache)

	blobs, blobPinger, blobErr := a.initBlobs(ctx)
	if blobErr != nil {
		return nil, blobErr
	}
	if blobPinger != nil {
		pingers = append(pingers, blobPinger)
	}

	dbServices, dbServErr := services.Factory(ctx, dbConn, serviceType(conf.DBType), services.Deps{
		Cache:          sessionCache,
		Blobs:          blobs,
		Pingers:        pingers,
		ReaperInterval: conf.ReaperInterval,
		Logger:         a.Logger,
		RepoLogger:     conf.NewRepoLogger(),
		Options: []func(*services.Options){
			services.WithRetention(conf.Retention),
			services.WithMaxUploadSize(conf.MaxUploadSize),
		},
	})
	if dbServErr != nil {
		return nil, dbServErr //nolint:wrapcheck
	}
	return dbServices, nil
}

type sessionCache interface {
	services.SessionCache
	services.Pinger
}

// initCache выбирает кеш сессий: Redis, если задан REDIS_URL, иначе LRU в памяти процесса.
func (a *App) initCache(ctx context.Context) (sessionCache, error) {
	logger := a.Logger.Named("cache")
	if a.config.RedisURL == "" {
		return cache.NewLRUCache[models.Session](a.config.CacheSize, a.config.CacheTTL, logger), nil
	}

	rdb, err := db.NewRedisClient(ctx, a.config.RedisURL)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	a.closers = append(a.closers, rdb.Close)
	return cache.NewRedisCache[models.Session](rdb, sessionCachePrefix, a.config.CacheTTL, logger), nil
}

// initBlobs выбирает хранилище содержимого изображений.
func (a *App) initBlobs(ctx context.Context) (services.BlobStore, services.Pinger, error) {
	if a.config.BlobType == config.BlobTypeS3 {
		store, err := blob.NewS3Store(ctx, blob.S3Options{
			Bucket:          a.config.S3Bucket,
			Region:          a.config.S3Region,
			Endpoint:        a.config.S3Endpoint,
			AccessKeyID:     a.config.S3AccessKeyID,
			SecretAccessKey: a.config.S3SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}
		return store, store, nil
	}

	store, err := blob.NewFSStore(afero.NewOsFs(), a.config.UploadDir)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	return store, nil, nil
}

func storageType(t config.DBType) db.StorageType {
	switch t {
	case config.DBTypePostgres:
		return db.StorageTypePostgres
	case config.DBTypeSQLite:
		return db.StorageTypeSQLite
	default:
		return db.StorageTypeInMemory
	}
}

func serviceType(t config.DBType) services.ServiceType {
	if t == config.DBTypePostgres || t == config.DBTypeSQLite {
		return services.ServiceTypeSQL
	}
	return services.ServiceTypeInMemory
}
