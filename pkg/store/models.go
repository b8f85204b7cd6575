package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID            string  `gorm:"primaryKey"`
	Email         string  `gorm:"uniqueIndex;not null"`
	Phone         *string `gorm:"uniqueIndex"`
	FirstName     string  `gorm:"not null"`
	LastName      string  `gorm:"not null"`
	PasswordHash  string  `gorm:"not null"`
	EmailVerified bool    `gorm:"not null;default:false"`
	PhoneVerified bool    `gorm:"not null;default:false"`

	EmailOTP        *string `gorm:"size:6"`
	EmailOTPExpires *time.Time
	PhoneOTP        *string `gorm:"size:6"`
	PhoneOTPExpires *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type DocumentModel struct {
	ID               string `gorm:"primaryKey"`
	OwnerID          string `gorm:"not null;index"`
	OriginalFilename string `gorm:"not null"`
	StorageKey       string `gorm:"not null"`
	ContentType      string
	SizeBytes        int64          `gorm:"not null"`
	Metadata         datatypes.JSON `gorm:"type:jsonb"`
	Excerpt          string         `gorm:"type:text"`
	UploadedAt       time.Time      `gorm:"not null"`
}

type ChatModel struct {
	ID         string  `gorm:"primaryKey"`
	OwnerID    string  `gorm:"not null;index"`
	DocumentID *string `gorm:"index"`
	Title      string  `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time
}

type ChatMessageModel struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"not null;index"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
