package blob

import (
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore(t *testing.T) {
	mem := afero.NewMemMapFs()
	store, err := NewFSStore(mem, "/uploads")
	require.NoError(t, err)

	ctx := t.Context()
	payload := "\x89PNG fake payload"
	require.NoError(t, store.Put(ctx, "images/abc123-cat.png", strings.NewReader(payload), int64(len(payload)), "image/png"))

	exists, err := afero.Exists(mem, "/uploads/images/abc123-cat.png")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Open(ctx, "images/abc123-cat.png")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, payload, string(body))

	require.NoError(t, store.Delete(ctx, "images/abc123-cat.png"))
	require.ErrorIs(t, store.Delete(ctx, "images/abc123-cat.png"), ErrNotFound)

	_, err = store.Open(ctx, "images/abc123-cat.png")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFSStore_InvalidKey(t *testing.T) {
	store, err := NewFSStore(afero.NewMemMapFs(), "/uploads")
	require.NoError(t, err)

	for _, key := range []string{"", "/", "../etc/passwd", "images/../../secret", "images/..", `..`} {
		err = store.Put(t.Context(), key, strings.NewReader("x"), 1, "text/plain")
		assert.Error(t, err, "key %q", key)
	}
}

func TestFSStore_DotsInsideName(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store, err := NewFSStore(fsys, "/uploads")
	require.NoError(t, err)

	const key = "images/ab12cd-holiday..photo.png"
	require.NoError(t, store.Put(t.Context(), key, strings.NewReader("payload"), 7, "image/png"))

	ok, err := afero.Exists(fsys, "/uploads/images/ab12cd-holiday..photo.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Open(t.Context(), key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
}
