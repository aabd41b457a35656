package models

import "time"

type User struct {
	BaseModel
	FirstName    string     `json:"first_name" gorm:"type:varchar(50);not null"`
	LastName     string     `json:"last_name" gorm:"type:varchar(50);not null"`
	Email        string     `json:"email" gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty" gorm:"type:date"`
	StorageUsed  int64      `json:"storage_used" gorm:"not null;default:0"`
	ResetToken   *string    `json:"-" gorm:"type:varchar(100)"`

	Files    []File    `json:"-" gorm:"foreignKey:UserID"`
	Shares   []Share   `json:"-" gorm:"foreignKey:UserID"`
	Contacts []Contact `json:"-" gorm:"foreignKey:UserID"`
}
