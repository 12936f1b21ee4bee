package services

import "errors"

var (
	// ErrValidation некорректные входные данные.
	ErrValidation = errors.New("[service]: validation error")
	// ErrTooLarge загружаемый файл превышает допустимый размер.
	ErrTooLarge       = errors.New("[service]: payload too large")
	ErrRecordNotFound = errors.New("[service]: record not found")
	// ErrConflict документ не удалось записать из-за конкурентных изменений.
	ErrConflict = errors.New("[service]: conflicting update")
	// ErrStorage ошибка хранилища.
	ErrStorage = errors.New("[service]: storage error")
)
