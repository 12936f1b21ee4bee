package sql

import (
	"fmt"

	"github.com/fsdevblog/snipshare/internal/repositories"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ConvertErrorType приводит ошибку gorm к ошибке уровня репозитория, сохраняя исходный текст.
func ConvertErrorType(err error) error {
	if err == nil {
		return nil
	}
	var nativeErr error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		nativeErr = repositories.ErrDuplicateKey
	case errors.Is(err, gorm.ErrRecordNotFound):
		nativeErr = repositories.ErrNotFound
	default:
		nativeErr = repositories.ErrUnknown
	}
	return fmt.Errorf("%w: %s", nativeErr, err.Error())
}
