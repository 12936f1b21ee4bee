package services

import (
	"io"
	"testing"
	"time"

	"github.com/fsdevblog/snipshare/internal/blob"
	"github.com/fsdevblog/snipshare/internal/cache"
	"github.com/fsdevblog/snipshare/internal/db"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFactory(t *testing.T) {
	sqlitePath := ":memory:"
	tests := []struct {
		name  string
		conf  db.FactoryConfig
		sType ServiceType
	}{
		{name: "in memory", conf: db.FactoryConfig{StorageType: db.StorageTypeInMemory}, sType: ServiceTypeInMemory},
		{name: "sqlite", conf: db.FactoryConfig{StorageType: db.StorageTypeSQLite, SqliteDBPath: &sqlitePath}, sType: ServiceTypeSQL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			conn, err := db.NewConnectionFactory(ctx, tt.conf)
			require.NoError(t, err)

			blobs, err := blob.NewFSStore(afero.NewMemMapFs(), "/uploads")
			require.NoError(t, err)
			repoLogger := logrus.New()
			repoLogger.SetOutput(io.Discard)
			deps := Deps{
				Cache:      cache.NewLRUCache[models.Session](16, time.Minute, zap.NewNop()),
				Blobs:      blobs,
				Logger:     zap.NewNop(),
				RepoLogger: repoLogger,
			}

			svc, err := Factory(ctx, conn, tt.sType, deps)
			require.NoError(t, err)
			require.NoError(t, svc.PingService.CheckConnection(ctx))

			session, err := svc.SessionService.Create(ctx)
			require.NoError(t, err)
			snippet, _, err := svc.SessionService.AddSnippet(ctx, session.ID, SnippetInput{Code: "print('hi')", Language: "python"})
			require.NoError(t, err)

			got, err := svc.SessionService.Get(ctx, session.ID)
			require.NoError(t, err)
			require.Len(t, got.Snippets, 1)
			assert.Equal(t, snippet.ID, got.Snippets[0].ID)

			// новый реестр, построенный по тому же хранилищу, знает о выданных кодах
			restarted, err := Factory(ctx, conn, tt.sType, deps)
			require.NoError(t, err)
			assert.True(t, restarted.Codes.Contains(session.ID))
			assert.True(t, restarted.Codes.Contains(snippet.ID))
			assert.Equal(t, 2, restarted.Codes.Len())
		})
	}
}

func TestFactory_InvalidConnection(t *testing.T) {
	_, err := Factory(t.Context(), db.NewMemStorage(), ServiceTypeSQL, Deps{})
	require.Error(t, err)

	_, err = Factory(t.Context(), nil, ServiceTypeInMemory, Deps{})
	require.Error(t, err)

	_, err = Factory(t.Context(), nil, "mongo", Deps{})
	require.Error(t, err)
}
