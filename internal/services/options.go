package services

import (
	"time"

	"github.com/fsdevblog/snipshare/internal/models"
)

// DefaultMaxUploadSize ограничение на размер загружаемого изображения.
const DefaultMaxUploadSize int64 = 10 << 20

// Options общие настройки сервисного слоя.
type Options struct {
	Retention     time.Duration    // Срок хранения сущностей
	MaxUploadSize int64            // Максимальный размер изображения в байтах
	Now           func() time.Time // Источник текущего времени
}

func defaultOptions() Options {
	return Options{
		Retention:     models.DefaultRetention,
		MaxUploadSize: DefaultMaxUploadSize,
		Now:           time.Now,
	}
}

// WithRetention задает срок хранения.
func WithRetention(d time.Duration) func(*Options) {
	return func(o *Options) {
		if d > 0 {
			o.Retention = d
		}
	}
}

// WithMaxUploadSize задает максимальный размер изображения.
func WithMaxUploadSize(size int64) func(*Options) {
	return func(o *Options) {
		if size > 0 {
			o.MaxUploadSize = size
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) func(*Options) {
	return func(o *Options) {
		o.Now = now
	}
}

func buildOptions(opts []func(*Options)) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o Options) now() time.Time {
	return o.Now().UTC()
}
