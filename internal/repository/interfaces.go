package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinexa/booking-api/internal/model"
)

// Sentinel errors returned by repositories. Services translate these into
// user-facing application errors.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a generic uniqueness violation (e.g. email).
	ErrDuplicate = errors.New("record already exists")

	// ErrSlotTaken indicates the (doctor, start_time) uniqueness constraint
	// rejected a write because a non-cancelled appointment already holds the
	// instant. This is the authoritative double-booking guard.
	ErrSlotTaken = errors.New("time slot already booked")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
	// GetPrimary returns the single practicing doctor of the V1 deployment.
	GetPrimary(ctx context.Context) (*model.Doctor, error)
	SetClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
}

type ClinicRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Clinic, error)
	Create(ctx context.Context, clinic *model.Clinic) error
	Update(ctx context.Context, clinic *model.Clinic) error
	UpdateSchedule(ctx context.Context, clinic *model.Clinic) error
}

type AppointmentRepository interface {
	// Create inserts a new appointment. Returns ErrSlotTaken when a
	// non-cancelled appointment already holds (doctor, start_time); the
	// check and the insert are enforced atomically by the storage layer.
	Create(ctx context.Context, apt *model.Appointment) error

	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)

	// Update persists status/start_time mutations. A reschedule that lands
	// on a held instant returns ErrSlotTaken via the same constraint.
	Update(ctx context.Context, apt *model.Appointment) error

	// ExistsActiveAt reports whether a non-cancelled appointment holds the
	// instant, optionally excluding one appointment id (reschedule self-check).
	// This is a courtesy pre-check only; Create/Update remain authoritative.
	ExistsActiveAt(ctx context.Context, doctorID uuid.UUID, startTime time.Time, excludeID *uuid.UUID) (bool, error)

	// ListActiveInstants returns the non-cancelled appointment start times
	// for the doctor within [from, to), used to mark generated slots booked.
	ListActiveInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]*model.Appointment, error)
	List(ctx context.Context, status model.AppointmentStatus, from, to *time.Time) ([]*model.Appointment, error)

	// ListDueReminders returns pending/confirmed appointments starting in
	// [from, to) whose reminder has not been sent yet.
	ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
