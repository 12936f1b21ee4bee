package services

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsdevblog/snipshare/internal/blob"
	"github.com/fsdevblog/snipshare/internal/logs"
	"github.com/fsdevblog/snipshare/internal/models"
	"github.com/fsdevblog/snipshare/internal/repositories"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// imagesPrefix каталог изображений в blob хранилище.
const imagesPrefix = "images/"

// sniffLen сколько байт читать для определения типа содержимого.
const sniffLen = 3072

// imageExtMimes допустимые расширения изображений и тип содержимого, который им соответствует.
var imageExtMimes = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedDots    = regexp.MustCompile(`\.{2,}`)
)

// ImageUpload загружаемое изображение.
type ImageUpload struct {
	OriginalName string
	Size         int64
	Content      io.Reader
}

// ImageService Сервис хранит изображения: содержимое в BlobStore, метаданные в ImageRepository.
type ImageService struct {
	repo   ImageRepository
	blobs  BlobStore
	codes  CodeAllocator
	opts   Options
	logger *zap.Logger
}

func NewImageService(
	repo ImageRepository,
	blobs BlobStore,
	codes CodeAllocator,
	logger *zap.Logger,
	opts ...func(*Options),
) *ImageService {
	return &ImageService{
		repo:   repo,
		blobs:  blobs,
		codes:  codes,
		opts:   buildOptions(opts),
		logger: logger,
	}
}

// MaxUploadSize максимальный размер изображения, который примет Upload.
func (s *ImageService) MaxUploadSize() int64 {
	return s.opts.MaxUploadSize
}

// Upload проверяет изображение и сохраняет его. Ничего не записывается, если проверка не пройдена.
func (s *ImageService) Upload(ctx context.Context, in ImageUpload) (*models.ImageAsset, error) {
	if in.Size > s.opts.MaxUploadSize {
		return nil, errors.Wrapf(ErrTooLarge, "image is larger than %d bytes", s.opts.MaxUploadSize)
	}
	if in.Content == nil || in.OriginalName == "" {
		return nil, errors.Wrap(ErrValidation, "no image file provided")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(in.OriginalName), "."))
	wantMime, ok := imageExtMimes[ext]
	if !ok {
		return nil, errors.Wrap(ErrValidation, "only image files are allowed")
	}

	head := make([]byte, sniffLen)
	n, readErr := io.ReadFull(in.Content, head)
	if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
		return nil, errors.Wrapf(ErrStorage, "read upload: %s", readErr.Error())
	}
	head = head[:n]
	mime := mimetype.Detect(head)
	if !mime.Is(wantMime) {
		s.logger.Debug("image content does not match extension",
			zap.String("ext", ext),
			zap.String("name", in.OriginalName),
			zap.String("mime", mime.String()),
		)
		return nil, errors.Wrap(ErrValidation, "only image files are allowed")
	}

	now := s.opts.now()
	code := s.codes.Next().Code
	filename := code + "-" + safeName(in.OriginalName)
	image := &models.ImageAsset{
		ID:           code,
		Filename:     filename,
		OriginalName: in.OriginalName,
		Path:         imagesPrefix + filename,
		Size:         in.Size,
		Mimetype:     mime.String(),
		UploadedAt:   now,
		ExpiresAt:    models.ExpiresAt(now, s.opts.Retention),
	}

	body := io.MultiReader(bytes.NewReader(head), in.Content)
	if err := s.blobs.Put(ctx, image.Path, body, image.Size, image.Mimetype); err != nil {
		s.codes.Remove(code)
		return nil, errors.Wrapf(ErrStorage, "store image payload: %s", err.Error())
	}
	if err := s.repo.Create(ctx, image); err != nil {
		if delErr := s.blobs.Delete(ctx, image.Path); delErr != nil {
			s.logger.Error("remove orphan image payload", zap.String("path", image.Path), zap.Error(delErr))
		}
		s.codes.Remove(code)
		return nil, errors.Wrapf(ErrStorage, "store image metadata: %s", err.Error())
	}
	return image, nil
}

// Open возвращает метаданные изображения и поток с его содержимым. Поток нужно закрыть.
func (s *ImageService) Open(ctx context.Context, id string) (*models.ImageAsset, io.ReadCloser, error) {
	image, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, convertRepoErr(err, "image", id)
	}
	if image.IsExpired(s.opts.now()) {
		s.expire(ctx, image)
		return nil, nil, errors.Wrapf(ErrRecordNotFound, "image %s expired", id)
	}

	rc, err := s.blobs.Open(ctx, image.Path)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, errors.Wrapf(ErrRecordNotFound, "image %s payload is missing", id)
		}
		return nil, nil, errors.Wrapf(ErrStorage, "open image %s: %s", id, err.Error())
	}
	return image, rc, nil
}

// discard удаляет только что загруженное изображение, которое не удалось прикрепить к сессии.
func (s *ImageService) discard(ctx context.Context, image *models.ImageAsset) {
	if err := s.repo.Delete(ctx, image.ID); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("discard image", logs.ImageID(image.ID), zap.Error(err))
		}
		return
	}
	s.codes.Remove(image.ID)
	if err := s.blobs.Delete(ctx, image.Path); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Error("discard image payload", zap.String("path", image.Path), zap.Error(err))
	}
}

// expire удаляет метаданные и содержимое изображения с истекшим сроком.
func (s *ImageService) expire(ctx context.Context, image *models.ImageAsset) {
	deleted, err := s.repo.DeleteIfExpired(ctx, image.ID, s.opts.now())
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("delete expired image", logs.ImageID(image.ID), zap.Error(err))
		}
		return
	}
	if !deleted {
		return
	}
	s.codes.Remove(image.ID)
	if delErr := s.blobs.Delete(ctx, image.Path); delErr != nil && !errors.Is(delErr, blob.ErrNotFound) {
		s.logger.Error("delete expired image payload", zap.String("path", image.Path), zap.Error(delErr))
	}
}

// safeName оставляет от имени файла только безопасные для ключа символы.
func safeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := unsafeNameChars.ReplaceAllString(base, "_")
	cleaned = strings.Trim(repeatedDots.ReplaceAllString(cleaned, "."), "._")
	if cleaned == "" {
		return "image"
	}
	return cleaned
}
