package models

import "github.com/google/uuid"

type File struct {
	BaseModel
	OriginalFilename string    `json:"original_filename" gorm:"type:varchar(255);not null"`
	StoredFilename   string    `json:"stored_filename" gorm:"type:varchar(255);uniqueIndex;not null"`
	FileSize         int64     `json:"file_size" gorm:"not null"`
	UserID           uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`

	Owner  User    `json:"-" gorm:"foreignKey:UserID;references:ID"`
	Shares []Share `json:"-" gorm:"foreignKey:FileID"`
}
