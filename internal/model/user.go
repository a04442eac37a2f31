package model

// Role determines which appointment transitions an actor may perform.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a system user account.
type User struct {
	Base
	Email        string  `json:"email" db:"email"`
	Name         string  `json:"name" db:"name"`
	Password     string  `json:"password,omitempty" db:"-"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Phone        *string `json:"phone" db:"phone"`
	Role         Role    `json:"role" db:"role"`
	Status       string  `json:"status" db:"status"`
}
