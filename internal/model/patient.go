package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	Base
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Phone       string     `json:"phone" db:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth" db:"date_of_birth"`
	Gender      string     `json:"gender" db:"gender"`
	Address     string     `json:"address" db:"address"`
}

type UpdatePatientRequest struct {
	Phone       *string    `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender" binding:"omitempty,oneof=male female other"`
	Address     *string    `json:"address"`
}
