package models

import "gorm.io/gorm"

// Operator is the login for an account. Its email is the account key.
type Operator struct {
	gorm.Model
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
}
