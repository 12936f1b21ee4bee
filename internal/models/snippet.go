package models

import "time"

// Значения по умолчанию для необязательных полей сниппета.
const (
	DefaultSnippetLanguage = "text"
	DefaultSnippetTitle    = "Untitled"
)

// Snippet структура модели хранения фрагмента кода.
type Snippet struct {
	ID          string    `json:"id" gorm:"primaryKey;size:16"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt" gorm:"index"`
	Views       uint64    `json:"views"`
}

// IsExpired сообщает, истек ли срок хранения сниппета к моменту now.
func (s *Snippet) IsExpired(now time.Time) bool {
	return isExpired(s.ExpiresAt, now)
}

// ApplyDefaults заполняет пустые необязательные поля значениями по умолчанию.
func (s *Snippet) ApplyDefaults() {
	if s.Language == "" {
		s.Language = DefaultSnippetLanguage
	}
	if s.Title == "" {
		s.Title = DefaultSnippetTitle
	}
}
