// Package memstore предоставляет реализацию репозиториев сниппетов, изображений и сессий
// для in-memory хранилища.
//
// Все методы репозиториев преобразуют внутренние ошибки хранилища в общие ошибки уровня репозитория
// с помощью convertErrorType:
//   - memory.ErrDuplicateKey -> repositories.ErrDuplicateKey
//   - memory.ErrNotFound -> repositories.ErrNotFound
//   - repositories.ErrStaleRevision остается как есть
//   - другие ошибки -> repositories.ErrUnknown
package memstore
