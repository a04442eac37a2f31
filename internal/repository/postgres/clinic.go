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

type clinicRepository struct {
	db *sqlx.DB
}

func NewClinicRepository(db *sqlx.DB) repository.ClinicRepository {
	return &clinicRepository{db: db}
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	err := r.db.GetContext(ctx, &clinic, `SELECT * FROM clinics WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &clinic, nil
}

func (r *clinicRepository) GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	err := r.db.GetContext(ctx, &clinic, `SELECT * FROM clinics WHERE doctor_id = $1`, doctorID)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinic by doctor: %w", err)
	}
	return &clinic, nil
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (
			id, doctor_id, name, address, city, phone, location_link,
			timezone, slot_duration_minutes, weekly, exceptions,
			created_at, updated_at
		) VALUES (
			:id, :doctor_id, :name, :address, :city, :phone, :location_link,
			:timezone, :slot_duration_minutes, :weekly, :exceptions,
			:created_at, :updated_at
		)`

	if clinic.ID == uuid.Nil {
		clinic.ID = uuid.New()
	}
	now := time.Now().UTC()
	clinic.CreatedAt = now
	clinic.UpdatedAt = now

	if _, err := r.db.NamedExecContext(ctx, query, clinic); err != nil {
		if isUniqueViolation(err, "") {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

func (r *clinicRepository) Update(ctx context.Context, clinic *model.Clinic) error {
	query := `
		UPDATE clinics SET
			name = :name,
			address = :address,
			city = :city,
			phone = :phone,
			location_link = :location_link,
			updated_at = :updated_at
		WHERE id = :id`

	clinic.UpdatedAt = time.Now().UTC()

	result, err := r.db.NamedExecContext(ctx, query, clinic)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", err)
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

func (r *clinicRepository) UpdateSchedule(ctx context.Context, clinic *model.Clinic) error {
	query := `
		UPDATE clinics SET
			timezone = :timezone,
			slot_duration_minutes = :slot_duration_minutes,
			weekly = :weekly,
			exceptions = :exceptions,
			updated_at = :updated_at
		WHERE id = :id`

	clinic.UpdatedAt = time.Now().UTC()

	result, err := r.db.NamedExecContext(ctx, query, clinic)
	if err != nil {
		return fmt.Errorf("failed to update clinic schedule: %w", err)
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
