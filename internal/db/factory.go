package db

import (
	"context"
	"errors"
	"fmt"
)

type StorageType string

const (
	StorageTypePostgres StorageType = "postgres"
	StorageTypeSQLite   StorageType = "sqlite"
	StorageTypeInMemory StorageType = "inMemory"
)

type FactoryConfig struct {
	StorageType  StorageType
	PostgresDSN  *string
	SqliteDBPath *string
}

// NewConnectionFactory открывает подключение к хранилищу документов нужного типа.
// Для sql хранилищ возвращает *gorm.DB, для хранилища в памяти *MemoryStorage.
func NewConnectionFactory(ctx context.Context, config FactoryConfig) (any, error) {
	switch config.StorageType {
	case StorageTypePostgres:
		if config.PostgresDSN == nil || *config.PostgresDSN == "" {
			return nil, errors.New("postgres dsn is empty")
		}
		conn, err := NewPostgres(ctx, *config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres connection: %w", err)
		}
		return conn, nil
	case StorageTypeSQLite:
		if config.SqliteDBPath == nil || *config.SqliteDBPath == "" {
			return nil, errors.New("sqlite path is empty")
		}
		conn, err := NewSQLite(*config.SqliteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite connection: %w", err)
		}
		return conn, nil
	case StorageTypeInMemory:
		return NewMemStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", config.StorageType)
	}
}
