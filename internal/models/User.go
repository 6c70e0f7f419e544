package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the kind of person a User record describes.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleWorker  Role = "worker"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleWorker, RoleStudent:
		return true
	}
	return false
}

// NotAvailable is rendered for optional fields that were never set.
const NotAvailable = "N/A"

// User is a person holding a Krypto Bucks balance.
// Optional fields are nil when unset.
type User struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       Role            `json:"role"`
	Balance    decimal.Decimal `json:"balance"`
	Barcode    *string         `json:"barcode,omitempty"`
	Grade      *string         `json:"grade,omitempty"`
	SecretCode *string         `json:"secret_code,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (u User) BarcodeOrDefault() string    { return valueOr(u.Barcode, NotAvailable) }
func (u User) GradeOrDefault() string      { return valueOr(u.Grade, NotAvailable) }
func (u User) SecretCodeOrDefault() string { return valueOr(u.SecretCode, NotAvailable) }

// UserPatch carries the fields of an update. Nil fields are left untouched;
// an empty string clears an optional field. Balance is not patchable, it only
// moves through ledger operations.
type UserPatch struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Role       *Role   `json:"role"`
	Barcode    *string `json:"barcode"`
	Grade      *string `json:"grade"`
	SecretCode *string `json:"secret_code"`
}

// Apply merges the supplied fields into u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Barcode != nil {
		u.Barcode = optional(*p.Barcode)
	}
	if p.Grade != nil {
		u.Grade = optional(*p.Grade)
	}
	if p.SecretCode != nil {
		u.SecretCode = optional(*p.SecretCode)
	}
}

func valueOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string { return optional(s) }
