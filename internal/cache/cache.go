// Package cache ограниченный по размеру и времени жизни кеш документов.
//
// Значения хранятся сериализованными, поэтому Get всегда возвращает независимую копию.
// Каждая запись несет версию документа: запись более старой версии поверх новой игнорируется.
// Ошибки бэкенда не пробрасываются наружу: кеш лишь ускоряет чтение, и промах всегда допустим.
package cache

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

func encode[V any](v *V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode cache value")
	}
	return b, nil
}

func decode[V any](b []byte) (*V, error) {
	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, errors.Wrap(err, "decode cache value")
	}
	return &v, nil
}
