package db

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres создает подключение к PostgreSQL через gorm и мигрирует схему.
//
// Параметры:
//   - ctx: контекст выполнения
//   - dsn: строка подключения к базе данных (Data Source Name)
//
// Возвращает:
//   - *gorm.DB: подключение к PostgreSQL
//   - error: ошибка создания подключения
func NewPostgres(ctx context.Context, dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if pingErr := Ping(ctx, conn); pingErr != nil {
		return nil, pingErr
	}
	if migrateErr := migrate(conn.WithContext(ctx)); migrateErr != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", migrateErr)
	}
	return conn, nil
}
