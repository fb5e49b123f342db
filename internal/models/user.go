package models

import (
	"strings"
	"time"
)

// UnusablePasswordPrefix marks a password hash that can never match.
const UnusablePasswordPrefix = "!"

type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username" validate:"required,max=150"`
	Email     string    `json:"email" db:"email" validate:"required,email"`
	FirstName string    `json:"first_name" db:"first_name" validate:"max=150"`
	LastName  string    `json:"last_name" db:"last_name" validate:"max=150"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	IsStaff   bool      `json:"is_staff" db:"is_staff"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	Password  string    `json:"-" db:"password"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Profile struct {
	PhoneNumber string `json:"phone_number" db:"phone_number" validate:"max=30"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) HasUsablePassword() bool {
	return u.Password != "" && !strings.HasPrefix(u.Password, UnusablePasswordPrefix)
}

// Caller is the identity a write is performed under.
type Caller struct {
	ID      int64
	Name    string
	IsStaff bool
	IsAdmin bool
}

// CanManage reports whether the caller may edit requests and videos.
func (c Caller) CanManage() bool {
	return c.IsStaff || c.IsAdmin
}

func (u *User) AsCaller() Caller {
	name := u.FullName()
	if name == "" {
		name = u.Username
	}
	return Caller{ID: u.ID, Name: name, IsStaff: u.IsStaff, IsAdmin: u.IsAdmin}
}
