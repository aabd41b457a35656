package models

import (
	"time"

	"github.com/google/uuid"
)

type Share struct {
	BaseModel
	FileID         uuid.UUID `json:"file_id" gorm:"type:uuid;not null;index"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	RecipientEmail string    `json:"recipient_email" gorm:"type:varchar(120);not null"`
	ShareToken     string    `json:"share_token" gorm:"type:varchar(64);uniqueIndex;not null"`
	Message        *string   `json:"message,omitempty" gorm:"type:text"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null"`
	AccessCount    int64     `json:"access_count" gorm:"not null;default:0"`

	File     File `json:"file,omitempty" gorm:"foreignKey:FileID;references:ID"`
	SharedBy User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (Share) TableName() string {
	return "shares"
}

// IsExpired reports whether the share must no longer be served.
func (s *Share) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
