package models

import "time"

// Roster names one of the two staff collections.
type Roster string

const (
	RosterWorkers   Roster = "workers"
	RosterEmployees Roster = "employees"
)

// Staff is a worker login or an employee roster entry. Both collections share
// the shape. Password is stored as entered.
type Staff struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}

type StaffPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (p StaffPatch) Apply(s *Staff) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.Password != nil {
		s.Password = *p.Password
	}
}
