package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, clinic_id, start_time, status,
			reason, notes, source, created_at, updated_at
		) VALUES (
			:id, :doctor_id, :patient_id, :clinic_id, :start_time, :status,
			:reason, :notes, :source, :created_at, :updated_at
		)`

	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	now := time.Now().UTC()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	if _, err := r.db.NamedExecContext(ctx, query, apt); err != nil {
		if isUniqueViolation(err, slotConstraintName) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, `SELECT * FROM appointments WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments SET
			start_time = :start_time,
			status = :status,
			notes = :notes,
			cancelled_at = :cancelled_at,
			cancelled_by = :cancelled_by,
			cancellation_reason = :cancellation_reason,
			updated_at = :updated_at
		WHERE id = :id`

	apt.UpdatedAt = time.Now().UTC()

	result, err := r.db.NamedExecContext(ctx, query, apt)
	if err != nil {
		if isUniqueViolation(err, slotConstraintName) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) ExistsActiveAt(ctx context.Context, doctorID uuid.UUID, startTime time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND start_time = $2
			  AND status IN ('pending', 'confirmed', 'completed')
			  AND ($3::uuid IS NULL OR id <> $3)
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, doctorID, startTime, excludeID); err != nil {
		return false, fmt.Errorf("failed to check slot availability: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) ListActiveInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT start_time FROM appointments
		WHERE doctor_id = $1
		  AND start_time >= $2 AND start_time < $3
		  AND status IN ('pending', 'confirmed', 'completed')
		ORDER BY start_time`

	var instants []time.Time
	if err := r.db.SelectContext(ctx, &instants, query, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list booked instants: %w", err)
	}
	return instants, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time DESC`

	var apts []*model.Appointment
	if err := r.db.SelectContext(ctx, &apts, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return apts, nil
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE doctor_id = $1
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		ORDER BY start_time`

	var apts []*model.Appointment
	if err := r.db.SelectContext(ctx, &apts, query, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return apts, nil
}

func (r *appointmentRepository) List(ctx context.Context, status model.AppointmentStatus, from, to *time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		ORDER BY start_time`

	var apts []*model.Appointment
	if err := r.db.SelectContext(ctx, &apts, query, string(status), from, to); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return apts, nil
}

func (r *appointmentRepository) ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE start_time >= $1 AND start_time < $2
		  AND status IN ('pending', 'confirmed')
		  AND reminder_sent_at IS NULL
		ORDER BY start_time`

	var apts []*model.Appointment
	if err := r.db.SelectContext(ctx, &apts, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return apts, nil
}

func (r *appointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE appointments SET reminder_sent_at = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
