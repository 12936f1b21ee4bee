// Package blob хранилище содержимого загруженных файлов: локальная файловая система или S3-совместимый бакет.
package blob

import "errors"

// ErrNotFound объекта с таким ключом нет.
var ErrNotFound = errors.New("[blob]: object not found")
