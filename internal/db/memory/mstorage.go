// Package memory простое key/value хранилище в памяти. Значения хранятся сериализованными в JSON,
// поэтому вызывающий код всегда получает собственную копию документа.
package memory

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type MStorage struct {
	data map[string][]byte
	m    sync.RWMutex
}

func NewMemStorage() *MStorage {
	return &MStorage{
		data: make(map[string][]byte),
	}
}

func (m *MStorage) Len() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return len(m.data)
}

func (m *MStorage) IsExist(key string) bool {
	m.m.RLock()
	defer m.m.RUnlock()

	_, ok := m.data[key]
	return ok
}

// Keys возвращает все ключи хранилища в произвольном порядке.
func (m *MStorage) Keys() []string {
	m.m.RLock()
	defer m.m.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// Delete удаляет запись. Если записи нет, вернется ErrNotFound.
func (m *MStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}
	m.m.Lock()
	defer m.m.Unlock()

	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}

func Get[T any](ctx context.Context, key string, m *MStorage) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	m.m.RLock()
	defer m.m.RUnlock()

	return decode[T](key, m.data)
}

// SetOptions настройки записи.
type SetOptions struct {
	overwrite bool
}

// WithOverwrite разрешает перезапись существующего ключа.
func WithOverwrite() func(*SetOptions) {
	return func(o *SetOptions) {
		o.overwrite = true
	}
}

// Set Сохраняет новые пары ключ/значение. Ключ обязан быть уникальным, иначе вернется ошибка ErrDuplicateKey.
func Set[T any](ctx context.Context, key string, val *T, m *MStorage, opts ...func(*SetOptions)) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}
	var options SetOptions
	for _, opt := range opts {
		opt(&options)
	}

	bytes, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal json for object `%+v`", val)
	}

	m.m.Lock()
	defer m.m.Unlock()

	if _, ok := m.data[key]; ok && !options.overwrite {
		return ErrDuplicateKey
	}
	m.data[key] = bytes
	return nil
}

// Update атомарно читает запись, передает её в fn и сохраняет результат.
// Если fn вернула ошибку, запись не меняется, а ошибка возвращается как есть.
// Если записи нет, вернется ErrNotFound.
func Update[T any](ctx context.Context, key string, m *MStorage, fn func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	m.m.Lock()
	defer m.m.Unlock()

	val, err := decode[T](key, m.data)
	if err != nil {
		return nil, err
	}
	if fnErr := fn(val); fnErr != nil {
		return nil, fnErr
	}
	bytes, err := json.Marshal(val)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal json by key `%s`", key)
	}
	m.data[key] = bytes
	return val, nil
}

// DeleteIf атомарно удаляет запись, если для неё выполняется условие cond.
// Возвращает true, если запись была удалена.
func DeleteIf[T any](ctx context.Context, key string, m *MStorage, cond func(*T) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err //nolint:wrapcheck
	}
	m.m.Lock()
	defer m.m.Unlock()

	val, err := decode[T](key, m.data)
	if err != nil {
		return false, err
	}
	if !cond(val) {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func GetAll[T any](ctx context.Context, m *MStorage) ([]T, error) {
	return FilterAll[T](ctx, m, func(T) bool { return true })
}

// FilterAll возвращает все записи, для которых fn вернула true.
// Записи, которые не удалось разобрать, пропускаются с предупреждением в лог.
func FilterAll[T any](ctx context.Context, m *MStorage, fn func(T) bool) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	m.m.RLock()
	defer m.m.RUnlock()

	var result = make([]T, 0, len(m.data))

	for key, bytes := range m.data {
		var val T
		if err := json.Unmarshal(bytes, &val); err != nil {
			logrus.WithError(err).Warnf("failed to unmarshal json by key `%s`", key)
			continue
		}
		if fn(val) {
			result = append(result, val)
		}
	}
	return result, nil
}

// decode должна вызываться под блокировкой.
func decode[T any](key string, data map[string][]byte) (*T, error) {
	val, ok := data[key]
	if !ok {
		return nil, ErrNotFound
	}
	var result T
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal json by key `%s`", key)
	}
	return &result, nil
}
