package db

import (
	"context"

	"github.com/fsdevblog/snipshare/internal/db/memory"
)

// MemoryStorage набор коллекций в памяти, по одной на каждый тип документа.
type MemoryStorage struct {
	Snippets *memory.MStorage
	Images   *memory.MStorage
	Sessions *memory.MStorage
}

func NewMemStorage() *MemoryStorage {
	return &MemoryStorage{
		Snippets: memory.NewMemStorage(),
		Images:   memory.NewMemStorage(),
		Sessions: memory.NewMemStorage(),
	}
}

// Ping хранилище в памяти доступно всегда, пока жив процесс.
func (m *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err() //nolint:wrapcheck
}
