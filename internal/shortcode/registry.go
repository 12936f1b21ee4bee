package shortcode

import (
	"sync"

	"go.uber.org/zap"
)

// Registry потокобезопасное множество выданных кодов.
// Заполняется при старте идентификаторами из хранилища и пополняется при каждом выделении.
type Registry struct {
	mu     sync.RWMutex
	codes  codeSet
	alloc  *Allocator
	logger *zap.Logger
}

type codeSet map[string]struct{}

func (c codeSet) Contains(code string) bool {
	_, ok := c[code]
	return ok
}

// NewRegistry создает пустой реестр, использующий alloc для генерации кодов.
func NewRegistry(alloc *Allocator, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		codes:  make(codeSet),
		alloc:  alloc,
		logger: logger,
	}
}

// Next выделяет новый код и сразу регистрирует его.
func (r *Registry) Next() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.alloc.Allocate(r.codes)
	if res.Outcome == ExhaustedFallback {
		r.logger.Warn("short code space exhausted, using uuid fallback",
			zap.String("code", res.Code),
			zap.Int("attempts", res.Attempts),
			zap.Int("known", len(r.codes)),
		)
	}
	r.codes[res.Code] = struct{}{}
	return res
}

// Contains сообщает, выдавался ли код.
func (r *Registry) Contains(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codes.Contains(code)
}

// Add регистрирует коды, выданные ранее (например, прочитанные из хранилища при старте).
func (r *Registry) Add(codes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range codes {
		r.codes[c] = struct{}{}
	}
}

// Remove освобождает код.
func (r *Registry) Remove(codes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range codes {
		delete(r.codes, c)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}
