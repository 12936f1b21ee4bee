package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// FSStore хранит объекты файлами в каталоге root.
type FSStore struct {
	fs   afero.Fs
	root string
}

// NewFSStore создает хранилище поверх fs. Для локального диска передайте afero.NewOsFs().
func NewFSStore(fsys afero.Fs, root string) (*FSStore, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &FSStore{fs: fsys, root: root}, nil
}

// resolve переводит ключ объекта в путь внутри root, не позволяя выйти за его пределы.
func (s *FSStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || slices.Contains(strings.Split(key, "/"), "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if mkErr := s.fs.MkdirAll(filepath.Dir(p), 0o755); mkErr != nil { //nolint:mnd
		return fmt.Errorf("create dir for %s: %w", key, mkErr)
	}
	f, err := s.fs.Create(p)
	if err != nil {
		return fmt.Errorf("create file for %s: %w", key, err)
	}
	if _, copyErr := io.Copy(f, r); copyErr != nil {
		_ = f.Close()
		_ = s.fs.Remove(p)
		return fmt.Errorf("write %s: %w", key, copyErr)
	}
	if closeErr := f.Close(); closeErr != nil {
		return fmt.Errorf("close %s: %w", key, closeErr)
	}
	return nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if rmErr := s.fs.Remove(p); rmErr != nil {
		if errors.Is(rmErr, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("remove %s: %w", key, rmErr)
	}
	return nil
}
