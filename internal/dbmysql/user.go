package dbmysql

import (
	"time"
)

type UserRow struct {
	ID           string    `gorm:"primaryKey;size:24"`
	Username     string    `gorm:"uniqueIndex;size:50;not null"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Avatar       string    `gorm:"size:512"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (UserRow) TableName() string { return "users" }
