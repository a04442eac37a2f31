package model

import (
	"github.com/google/uuid"
)

// Doctor links a user account to the practicing identity appointments
// reference. V1 runs a single doctor; the booking flow picks the primary one.
type Doctor struct {
	Base
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	ClinicID  *uuid.UUID `json:"clinic_id" db:"clinic_id"`
	Specialty string     `json:"specialty" db:"specialty"`
	Bio       string     `json:"bio" db:"bio"`
}
