package models

import "time"

// DefaultRetention срок хранения любой сущности с момента создания.
const DefaultRetention = 20 * 24 * time.Hour

// ExpiresAt вычисляет момент истечения срока хранения для сущности, созданной в createdAt.
func ExpiresAt(createdAt time.Time, retention time.Duration) time.Time {
	return createdAt.Add(retention)
}

func isExpired(expiresAt, now time.Time) bool {
	return !expiresAt.After(now)
}
