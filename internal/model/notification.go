package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the booking lifecycle.
const (
	NotificationAppointmentCreated     = "APPOINTMENT_CREATED"
	NotificationAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	NotificationAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	NotificationAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	NotificationAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	NotificationReminder               = "REMINDER"
)

type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Data      JSONMap    `db:"data" json:"data,omitempty"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
