package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinexa/booking-api/pkg/errors"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// ActiveStatuses are the statuses that hold a slot. Cancelled appointments
// free the slot for rebooking without being deleted.
var ActiveStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
}

type AppointmentSource string

const (
	SourcePatientApp  AppointmentSource = "patient_app"
	SourceDoctorPanel AppointmentSource = "doctor_panel"
	SourceAdminPanel  AppointmentSource = "admin_panel"
)

type Appointment struct {
	Base
	DoctorID           uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID          uuid.UUID         `db:"patient_id" json:"patient_id"`
	ClinicID           *uuid.UUID        `db:"clinic_id" json:"clinic_id,omitempty"`
	StartTime          time.Time         `db:"start_time" json:"start_time"`
	Status             AppointmentStatus `db:"status" json:"status"`
	Reason             string            `db:"reason" json:"reason"`
	Notes              string            `db:"notes" json:"notes"`
	Source             AppointmentSource `db:"source" json:"source"`
	CancelledAt        *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID        `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string           `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ReminderSentAt     *time.Time        `db:"reminder_sent_at" json:"-"`
}

type AppointmentAction string

const (
	ActionConfirm    AppointmentAction = "confirm"
	ActionComplete   AppointmentAction = "complete"
	ActionCancel     AppointmentAction = "cancel"
	ActionReschedule AppointmentAction = "reschedule"
)

// ValidateTransition checks the appointment state machine. It returns a
// conflict error naming the violated precondition, or nil if the action is
// legal from the current status.
func ValidateTransition(from AppointmentStatus, action AppointmentAction) error {
	switch action {
	case ActionConfirm:
		if from != AppointmentStatusPending {
			return errors.Conflict("only pending appointments can be confirmed")
		}
	case ActionComplete:
		if from != AppointmentStatusConfirmed {
			return errors.Conflict("only confirmed appointments can be completed")
		}
	case ActionCancel:
		if from == AppointmentStatusCancelled {
			return errors.Conflict("appointment is already cancelled")
		}
		if from == AppointmentStatusCompleted {
			return errors.Conflict("cannot cancel a completed appointment")
		}
	case ActionReschedule:
		if from == AppointmentStatusCancelled || from == AppointmentStatusCompleted {
			return errors.Conflict("cannot reschedule a " + string(from) + " appointment")
		}
	default:
		return errors.Conflict("unknown appointment action")
	}
	return nil
}

// CreateAppointmentRequest books a slot. Either start_time (an absolute
// RFC3339 instant) or date+time (interpreted as clinic-local wall clock)
// must be supplied. PatientID is honored for doctor and admin callers only;
// patients always book for themselves.
type CreateAppointmentRequest struct {
	StartTime *time.Time `json:"start_time"`
	Date      string     `json:"date" binding:"omitempty,dateonly"`
	Time      string     `json:"time" binding:"omitempty,hhmm"`
	PatientID *uuid.UUID `json:"patient_id"`
	Reason    string     `json:"reason" binding:"max=500"`
	Notes     string     `json:"notes" binding:"max=1000"`
}

type RescheduleAppointmentRequest struct {
	StartTime *time.Time `json:"start_time"`
	Date      string     `json:"date" binding:"omitempty,dateonly"`
	Time      string     `json:"time" binding:"omitempty,hhmm"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Slot statuses returned by the availability endpoint.
const (
	SlotStatusAvailable = "available"
	SlotStatusBooked    = "booked"
)

type Slot struct {
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
}

type AvailableSlotsResponse struct {
	Date                string `json:"date"`
	Timezone            string `json:"timezone"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
	Slots               []Slot `json:"slots"`
}

type AppointmentFilters struct {
	Status AppointmentStatus
	Date   string
}
