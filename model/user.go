package model

import "time"

type User struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Profiles []AuthProfile `gorm:"foreignKey:UserID"`
	Sessions []Session     `gorm:"foreignKey:UserID"`
}
