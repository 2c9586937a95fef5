package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account created through Yandex OAuth.
type User struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Login       string `json:"login"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AvatarURL   string `json:"avatar_url"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	// Yandex OAuth integration. The access token doubles as the tracker
	// API credential, so it is stored together with its expiry.
	YandexID           int64      `json:"-" gorm:"uniqueIndex;not null"`
	YandexToken        string     `json:"-"`
	YandexRefreshToken string     `json:"-"`
	YandexTokenExpires *time.Time `json:"-"`

	LastLogin *time.Time `json:"last_login"`
	gorm.Model
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
