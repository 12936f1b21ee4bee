package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewRepoLogger создает logrus логгер для слоя хранения.
func (c *Config) NewRepoLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	logger.SetFormatter(new(logrus.JSONFormatter))
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	// перезаписываем ряд настроек для окружений отличных от продакшн
	if os.Getenv("GIN_MODE") != "release" {
		logger.SetFormatter(new(logrus.TextFormatter))
	}

	return logger
}
