package models

import (
	"slices"
	"time"
)

// Session документ совместного доступа: набор сниппетов и изображений под одной короткой ссылкой.
//
// Revision растет на единицу при каждой успешной записи документа и используется
// для оптимистичной блокировки (compare-and-swap).
type Session struct {
	ID          string       `json:"id" gorm:"primaryKey;size:16"`
	Snippets    []Snippet    `json:"snippets" gorm:"serializer:json"`
	Images      []ImageAsset `json:"images" gorm:"serializer:json"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastUpdated time.Time    `json:"lastUpdated"`
	ExpiresAt   time.Time    `json:"expiresAt" gorm:"index"`
	Revision    uint64       `json:"revision"`
}

// InitialRevision ревизия только что созданного документа.
const InitialRevision uint64 = 1

func (s *Session) IsExpired(now time.Time) bool {
	return isExpired(s.ExpiresAt, now)
}

// Clone возвращает глубокую копию документа. Кеш и вызывающий код не должны делить слайсы.
func (s *Session) Clone() *Session {
	c := *s
	c.Snippets = slices.Clone(s.Snippets)
	c.Images = slices.Clone(s.Images)
	return &c
}

// RemoveSnippet удаляет сниппет из документа. Возвращает false, если такого сниппета нет.
func (s *Session) RemoveSnippet(snippetID string) bool {
	idx := slices.IndexFunc(s.Snippets, func(sn Snippet) bool { return sn.ID == snippetID })
	if idx < 0 {
		return false
	}
	s.Snippets = slices.Delete(s.Snippets, idx, idx+1)
	return true
}

// RemoveImage удаляет ссылку на изображение из документа. Возвращает false, если такого изображения нет.
func (s *Session) RemoveImage(imageID string) bool {
	idx := slices.IndexFunc(s.Images, func(img ImageAsset) bool { return img.ID == imageID })
	if idx < 0 {
		return false
	}
	s.Images = slices.Delete(s.Images, idx, idx+1)
	return true
}
