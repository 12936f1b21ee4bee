// Package shortcode выдает короткие идентификаторы из 6 символов алфавита [A-Za-z0-9].
//
// Идентификатор генерируется случайно и проверяется на уникальность по множеству известных кодов.
// Если за MaxAttempts попыток свободный код не найден, берется код, полученный из случайного UUID,
// без повторной проверки. Такой результат помечается как ExhaustedFallback.
package shortcode

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

const (
	// Alphabet символы, из которых состоит короткий код.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Length длина короткого кода.
	Length = 6
	// MaxAttempts количество попыток сгенерировать уникальный код до перехода на запасной вариант.
	MaxAttempts = 100
)

// byteLimit граница отсечения байтов, чтобы символы алфавита выпадали равновероятно.
const byteLimit = 256 - 256%len(Alphabet)

// Outcome результат выделения кода.
type Outcome int

const (
	// Generated код сгенерирован и не встречается во множестве известных кодов.
	Generated Outcome = iota
	// ExhaustedFallback попытки исчерпаны, код получен из UUID и его уникальность не проверялась.
	ExhaustedFallback
)

func (o Outcome) String() string {
	switch o {
	case Generated:
		return "generated"
	case ExhaustedFallback:
		return "exhausted_fallback"
	default:
		return "unknown"
	}
}

// Result код и способ, которым он был получен.
type Result struct {
	Code     string
	Outcome  Outcome
	Attempts int // Сколько случайных кодов было проверено
}

// Set множество уже занятых кодов.
type Set interface {
	Contains(code string) bool
}

// Options настройки аллокатора.
type Options struct {
	MaxAttempts int
	// Generate источник кандидатов. По умолчанию криптографически случайный код.
	Generate func() string
	// Fallback источник кода на случай исчерпания попыток. По умолчанию префикс UUID.
	Fallback func() string
}

// Allocator генератор коротких кодов. Безопасен для конкурентного использования,
// если конкурентно безопасен переданный Set.
type Allocator struct {
	opts Options
}

// NewAllocator создает аллокатор с настройками по умолчанию, которые можно переопределить через opts.
func NewAllocator(opts ...func(*Options)) *Allocator {
	options := Options{
		MaxAttempts: MaxAttempts,
		Generate:    RandomCode,
		Fallback:    UUIDCode,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Allocator{opts: options}
}

// Allocate подбирает код, которого нет в existing. Никогда не возвращает ошибку.
func (a *Allocator) Allocate(existing Set) Result {
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		code := a.opts.Generate()
		if !existing.Contains(code) {
			return Result{Code: code, Outcome: Generated, Attempts: attempt}
		}
	}
	return Result{
		Code:     a.opts.Fallback(),
		Outcome:  ExhaustedFallback,
		Attempts: a.opts.MaxAttempts,
	}
}

// RandomCode возвращает равномерно случайный код длины Length.
func RandomCode() string {
	var sb strings.Builder
	sb.Grow(Length)

	buf := make([]byte, Length*2) //nolint:mnd
	for sb.Len() < Length {
		// crypto/rand.Read не возвращает ошибок начиная с go 1.24.
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= byteLimit {
				continue
			}
			sb.WriteByte(Alphabet[int(b)%len(Alphabet)])
			if sb.Len() == Length {
				break
			}
		}
	}
	return sb.String()
}

// UUIDCode возвращает первые Length символов случайного UUID.
func UUIDCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:Length]
}

// IsValid проверяет, что строка может быть коротким кодом.
func IsValid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := range len(code) {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
