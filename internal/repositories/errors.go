package repositories

import "errors"

var (
	ErrNotFound     = errors.New("[repository]: record not found")
	ErrDuplicateKey = errors.New("[repository]: duplicate key")
	// ErrStaleRevision документ был изменен после того, как его прочитали.
	ErrStaleRevision = errors.New("[repository]: stale revision")
	ErrUnknown       = errors.New("[repository]: unknown error")
)
