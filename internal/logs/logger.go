// Package logs собирает zap логгер приложения и общие поля записей.
package logs

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Форматы вывода.
const (
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Options настройки логгера. Значения по умолчанию зависят от GIN_MODE:
// в release режиме JSON и уровень info, иначе консольный вывод и debug.
type Options struct {
	Level    string         // Уровень из конфигурации: debug, info, warn(ing), error, fatal, panic
	Encoding string         // EncodingConsole или EncodingJSON
	Name     string         // Имя корневого логгера
	Output   []string       // Пути вывода, "stdout" по умолчанию
	Fields   map[string]any // Поля каждой записи
}

// WithLevel задает уровень из конфигурации. Пустое значение оставляет уровень по умолчанию.
func WithLevel(level string) func(*Options) {
	return func(o *Options) {
		if level != "" {
			o.Level = level
		}
	}
}

// WithEncoding задает формат вывода.
func WithEncoding(encoding string) func(*Options) {
	return func(o *Options) {
		o.Encoding = encoding
	}
}

// WithName задает имя корневого логгера.
func WithName(name string) func(*Options) {
	return func(o *Options) {
		o.Name = name
	}
}

// WithOutput перенаправляет вывод, например в файл.
func WithOutput(paths ...string) func(*Options) {
	return func(o *Options) {
		o.Output = paths
	}
}

// WithFields добавляет поля, которые попадут в каждую запись.
func WithFields(fields map[string]any) func(*Options) {
	return func(o *Options) {
		if o.Fields == nil {
			o.Fields = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			o.Fields[k] = v
		}
	}
}

// ParseLevel разбирает уровень логирования из конфигурации. Регистр не важен, warning равен warn.
func ParseLevel(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return lvl, nil
}

func defaultOptions(release bool) Options {
	if release {
		return Options{Level: "info", Encoding: EncodingJSON, Output: []string{"stdout"}}
	}
	return Options{Level: "debug", Encoding: EncodingConsole, Output: []string{"stdout"}}
}

// New создает логгер приложения.
func New(opts ...func(*Options)) (*zap.Logger, error) {
	release := os.Getenv(gin.EnvGinMode) == gin.ReleaseMode
	options := defaultOptions(release)
	for _, opt := range opts {
		opt(&options)
	}

	lvl, err := ParseLevel(options.Level)
	if err != nil {
		return nil, err
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "ts"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	conf := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      !release,
		Encoding:         options.Encoding,
		EncoderConfig:    encoder,
		OutputPaths:      options.Output,
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    options.Fields,
	}
	log, err := conf.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if options.Name != "" {
		log = log.Named(options.Name)
	}
	return log, nil
}

// MustNew как New, но паникует при ошибке.
func MustNew(opts ...func(*Options)) *zap.Logger {
	log, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return log
}
