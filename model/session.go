package model

import "time"

// Session is the bearer credential itself. The ID is handed to clients as
// their access token, so it must come from a cryptographically strong,
// globally unique generator.
type Session struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
