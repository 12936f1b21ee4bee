// Package sql предоставляет реализацию репозиториев сниппетов, изображений и сессий поверх gorm.
// Работает с SQLite и PostgreSQL.
//
// Все методы репозиториев преобразуют ошибки gorm в общие ошибки уровня репозитория
// с помощью ConvertErrorType:
//   - gorm.ErrDuplicatedKey -> repositories.ErrDuplicateKey
//   - gorm.ErrRecordNotFound -> repositories.ErrNotFound
//   - другие ошибки -> repositories.ErrUnknown
package sql
