package models

import "time"

// ImageAsset метаданные загруженного изображения. Само содержимое лежит в blob хранилище по ключу Path.
type ImageAsset struct {
	ID           string    `json:"id" gorm:"primaryKey;size:16"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype"`
	UploadedAt   time.Time `json:"uploadedAt"`
	ExpiresAt    time.Time `json:"expiresAt" gorm:"index"`
}

func (i *ImageAsset) IsExpired(now time.Time) bool {
	return isExpired(i.ExpiresAt, now)
}
