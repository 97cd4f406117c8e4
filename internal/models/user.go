package models

import "time"

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string `gorm:"type:varchar(64)" json:"name"`
	Picture      string `gorm:"type:varchar(512)" json:"picture"`
	PasswordHash string `gorm:"type:varchar(128);not null" json:"-"`

	HasAcceptedTerms bool `gorm:"not null;default:false" json:"has_accepted_terms"`

	// entitlements
	IsPremium             bool `gorm:"not null;default:false" json:"is_premium"`
	IsAdmin               bool `gorm:"not null;default:false" json:"is_admin"`
	HasAdSupportedPremium bool `gorm:"not null;default:false" json:"has_ad_supported_premium"`

	// preferences
	SaveHistory bool `gorm:"not null;default:true" json:"save_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
