package models

import (
	"time"

	"gorm.io/datatypes"
)

// AccountSnapshot is the row holding one account's serialized Snapshot.
type AccountSnapshot struct {
	AccountKey string         `gorm:"primaryKey;size:255"`
	Payload    datatypes.JSON `gorm:"not null"`
	SavedAt    time.Time
}

// Setting is a small key/value row, used for the active account slot.
type Setting struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     string
	UpdatedAt time.Time
}
