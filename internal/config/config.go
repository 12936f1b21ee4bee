package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/pkg/errors"
)

type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypeInMemory DBType = "inMemory"
	DBTypePostgres DBType = "postgres"
)

type BlobType string

const (
	BlobTypeFS BlobType = "fs"
	BlobTypeS3 BlobType = "s3"
)

// Значения по умолчанию.
const (
	DefaultServerAddress   = "localhost:8080"
	DefaultCacheSize       = 1024
	DefaultCacheTTL        = 10 * time.Minute
	DefaultUploadDir       = "uploads"
	DefaultRetention       = 20 * 24 * time.Hour
	DefaultReaperInterval  = time.Hour
	DefaultMaxUploadSize   = 10 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
)

type Config struct {
	// Адрес, на котором запустится сервер
	ServerAddress string `env:"SERVER_ADDRESS" mapstructure:"server_address"`
	// Базовый адрес ссылок на сниппеты, изображения и сессии. Если пуст, берется Scheme://Host запроса.
	BaseURL string `env:"BASE_URL" mapstructure:"base_url"`
	// Тип хранилища документов
	DBType      DBType `env:"DB" mapstructure:"db"`
	SQLitePath  string `env:"SQLITE_PATH" mapstructure:"sqlite_path"`
	DatabaseDSN string `env:"DATABASE_DSN" mapstructure:"database_dsn"`
	// Адрес Redis для кеша сессий. Если пуст, используется кеш в памяти процесса.
	RedisURL  string        `env:"REDIS_URL" mapstructure:"redis_url"`
	CacheSize int           `env:"CACHE_SIZE" mapstructure:"cache_size"`
	CacheTTL  time.Duration `env:"CACHE_TTL" mapstructure:"cache_ttl"`
	// Хранилище содержимого изображений
	BlobType          BlobType `env:"BLOB" mapstructure:"blob"`
	UploadDir         string   `env:"UPLOAD_DIR" mapstructure:"upload_dir"`
	S3Bucket          string   `env:"S3_BUCKET" mapstructure:"s3_bucket"`
	S3Region          string   `env:"S3_REGION" mapstructure:"s3_region"`
	S3Endpoint        string   `env:"S3_ENDPOINT" mapstructure:"s3_endpoint"`
	S3AccessKeyID     string   `env:"S3_ACCESS_KEY_ID" mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string   `env:"S3_SECRET_ACCESS_KEY" mapstructure:"s3_secret_access_key"`

	Retention       time.Duration `env:"RETENTION" mapstructure:"retention"`
	ReaperInterval  time.Duration `env:"REAPER_INTERVAL" mapstructure:"reaper_interval"`
	MaxUploadSize   int64         `env:"MAX_UPLOAD_SIZE" mapstructure:"max_upload_size"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" mapstructure:"shutdown_timeout"`
	LogLevel        string        `env:"LOG_LEVEL" mapstructure:"log_level"`

	// Путь к файлу конфигурации (yaml, json, toml, env)
	ConfigFile string `env:"CONFIG" mapstructure:"-"`
}

// MustLoadConfig загружает конфигурацию из аргументов командной строки и окружения.
// В случае ошибки вызывает panic.
func MustLoadConfig() *Config {
	conf, err := LoadConfig(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return conf
}

// LoadConfig собирает конфигурацию. Приоритет: окружение, флаги, файл конфигурации, значения по умолчанию.
func LoadConfig(args []string) (*Config, error) {
	var envConfig, flagsConfig Config

	if err := env.Parse(&envConfig); err != nil {
		return nil, errors.Wrapf(err, "parse ENV config error")
	}

	if err := loadFlags(&flagsConfig, args); err != nil {
		return nil, errors.Wrap(err, "parse flags error")
	}

	var fileConfig Config
	if path := firstSet(envConfig.ConfigFile, flagsConfig.ConfigFile); path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		fileConfig = *fc
	}

	conf := mergeConfig(&envConfig, &flagsConfig, &fileConfig)
	if err := conf.normalize(); err != nil {
		return nil, err
	}
	return conf, nil
}

// loadFlags парсит флаги командной строки.
func loadFlags(flagsConfig *Config, args []string) error {
	fs := flag.NewFlagSet("snipshare", flag.ContinueOnError)
	fs.StringVar(&flagsConfig.ServerAddress, "a", "", "Адрес сервера (по умолчанию "+DefaultServerAddress+")")
	fs.StringVar(&flagsConfig.BaseURL, "b", "", "Базовый адрес ссылок (по умолчанию Scheme://Host запроса)")
	fs.StringVar(&flagsConfig.DatabaseDSN, "d", "", "Строка подключения к PostgreSQL")
	fs.StringVar(&flagsConfig.SQLitePath, "s", "", "Путь к файлу SQLite")
	fs.StringVar(&flagsConfig.RedisURL, "r", "", "Адрес Redis для кеша сессий")
	fs.StringVar(&flagsConfig.UploadDir, "u", "", "Каталог для загруженных изображений")
	fs.StringVar(&flagsConfig.LogLevel, "l", "", "Уровень логирования")
	fs.StringVar(&flagsConfig.ConfigFile, "c", "", "Путь к файлу конфигурации")

	return fs.Parse(args) //nolint:wrapcheck
}

// mergeConfig сливает структуры для env, флагов и файла.
func mergeConfig(envConfig, flagsConfig, fileConfig *Config) *Config {
	origins := envConfig.AllowedOrigins
	if len(origins) == 0 {
		origins = fileConfig.AllowedOrigins
	}
	return &Config{
		ServerAddress: firstSet(envConfig.ServerAddress, flagsConfig.ServerAddress, fileConfig.ServerAddress,
			DefaultServerAddress),
		BaseURL:     firstSet(envConfig.BaseURL, flagsConfig.BaseURL, fileConfig.BaseURL),
		DBType:      firstSet(envConfig.DBType, flagsConfig.DBType, fileConfig.DBType),
		SQLitePath:  firstSet(envConfig.SQLitePath, flagsConfig.SQLitePath, fileConfig.SQLitePath),
		DatabaseDSN: firstSet(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN, fileConfig.DatabaseDSN),
		RedisURL:    firstSet(envConfig.RedisURL, flagsConfig.RedisURL, fileConfig.RedisURL),
		CacheSize:   firstSet(envConfig.CacheSize, fileConfig.CacheSize, DefaultCacheSize),
		CacheTTL:    firstSet(envConfig.CacheTTL, fileConfig.CacheTTL, DefaultCacheTTL),
		BlobType:    firstSet(envConfig.BlobType, fileConfig.BlobType, BlobTypeFS),
		UploadDir: firstSet(envConfig.UploadDir, flagsConfig.UploadDir, fileConfig.UploadDir,
			DefaultUploadDir),
		S3Bucket:          firstSet(envConfig.S3Bucket, fileConfig.S3Bucket),
		S3Region:          firstSet(envConfig.S3Region, fileConfig.S3Region),
		S3Endpoint:        firstSet(envConfig.S3Endpoint, fileConfig.S3Endpoint),
		S3AccessKeyID:     firstSet(envConfig.S3AccessKeyID, fileConfig.S3AccessKeyID),
		S3SecretAccessKey: firstSet(envConfig.S3SecretAccessKey, fileConfig.S3SecretAccessKey),
		Retention:         firstSet(envConfig.Retention, fileConfig.Retention, DefaultRetention),
		ReaperInterval:    firstSet(envConfig.ReaperInterval, fileConfig.ReaperInterval, DefaultReaperInterval),
		MaxUploadSize:     firstSet(envConfig.MaxUploadSize, fileConfig.MaxUploadSize, DefaultMaxUploadSize),
		AllowedOrigins:    origins,
		ShutdownTimeout:   firstSet(envConfig.ShutdownTimeout, fileConfig.ShutdownTimeout, DefaultShutdownTimeout),
		LogLevel:          firstSet(envConfig.LogLevel, flagsConfig.LogLevel, fileConfig.LogLevel, DefaultLogLevel),
		ConfigFile:        firstSet(envConfig.ConfigFile, flagsConfig.ConfigFile),
	}
}

// normalize выводит тип хранилища, если он не задан явно, и проверяет значения.
func (c *Config) normalize() error {
	if c.DBType == "" {
		switch {
		case c.DatabaseDSN != "":
			c.DBType = DBTypePostgres
		case c.SQLitePath != "":
			c.DBType = DBTypeSQLite
		default:
			c.DBType = DBTypeInMemory
		}
	}
	switch c.DBType {
	case DBTypeInMemory, DBTypeSQLite, DBTypePostgres:
	default:
		return fmt.Errorf("unknown db type %q", c.DBType)
	}
	switch c.BlobType {
	case BlobTypeFS:
	case BlobTypeS3:
		if c.S3Bucket == "" {
			return errors.New("s3 bucket is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("unknown blob type %q", c.BlobType)
	}

	if _, err := logs.ParseLevel(c.LogLevel); err != nil {
		return err //nolint:wrapcheck
	}

	if c.BaseURL != "" {
		parsedURL, err := url.ParseRequestURI(c.BaseURL)
		if err != nil || parsedURL.Host == "" {
			return errors.Errorf("invalid base url %q", c.BaseURL)
		}
		// отсекаем Path и Query, если они заданы в базовом урле.
		c.BaseURL = (&url.URL{Scheme: parsedURL.Scheme, Host: parsedURL.Host}).String()
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

// firstSet возвращает первое непустое значение.
func firstSet[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
