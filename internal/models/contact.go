package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PhoneNumberList is stored as a JSON-array-of-strings in a text column.
// The Valuer/Scanner pair keeps the stored representation canonical no matter
// what shape the caller supplied on the write path.
type PhoneNumberList []string

func (p PhoneNumberList) Value() (driver.Value, error) {
	if p == nil {
		p = PhoneNumberList{}
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func (p *PhoneNumberList) Scan(value interface{}) error {
	if value == nil {
		*p = PhoneNumberList{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported phone_numbers column type %T", value)
	}

	if len(raw) == 0 {
		*p = PhoneNumberList{}
		return nil
	}

	return json.Unmarshal(raw, p)
}

func (PhoneNumberList) GormDataType() string {
	return "text"
}

type Contact struct {
	BaseModel
	UserID       uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	FirstName    string          `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName     string          `json:"last_name" gorm:"type:varchar(100);not null"`
	Address      string          `json:"address" gorm:"type:text"`
	Company      string          `json:"company" gorm:"type:varchar(150)"`
	PhoneNumbers PhoneNumberList `json:"phone_numbers" gorm:"type:text"`

	Owner User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}
