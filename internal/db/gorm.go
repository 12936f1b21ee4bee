package db

import (
	"context"
	"fmt"

	"github.com/fsdevblog/snipshare/internal/models"
	"gorm.io/gorm"
)

// SQLPinger адаптер *gorm.DB к интерфейсу проверки соединения.
type SQLPinger struct {
	DB *gorm.DB
}

func (p SQLPinger) Ping(ctx context.Context) error {
	return Ping(ctx, p.DB)
}

// Ping проверяет соединение с базой данных.
func Ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		return fmt.Errorf("ping database: %w", pingErr)
	}
	return nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Snippet{}, &models.ImageAsset{}, &models.Session{}); err != nil {
		return fmt.Errorf("migrating sql: %w", err)
	}
	return nil
}
