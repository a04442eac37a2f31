package clinic

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/pkg/errors"
)

type memClinicRepo struct {
	clinic       *model.Clinic
	scheduleSave int
}

func (r *memClinicRepo) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	if r.clinic == nil {
		return nil, repository.ErrNotFound
	}
	return r.clinic, nil
}

func (r *memClinicRepo) GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Clinic, error) {
	if r.clinic == nil {
		return nil, repository.ErrNotFound
	}
	return r.clinic, nil
}

func (r *memClinicRepo) Create(ctx context.Context, c *model.Clinic) error {
	c.ID = uuid.New()
	r.clinic = c
	return nil
}

func (r *memClinicRepo) Update(ctx context.Context, c *model.Clinic) error {
	r.clinic = c
	return nil
}

func (r *memClinicRepo) UpdateSchedule(ctx context.Context, c *model.Clinic) error {
	r.clinic = c
	r.scheduleSave++
	return nil
}

type memDoctorRepo struct {
	doctor *model.Doctor
}

func (r *memDoctorRepo) Create(ctx context.Context, d *model.Doctor) error { return nil }
func (r *memDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return r.doctor, nil
}
func (r *memDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	return r.doctor, nil
}
func (r *memDoctorRepo) GetPrimary(ctx context.Context) (*model.Doctor, error) {
	if r.doctor == nil {
		return nil, repository.ErrNotFound
	}
	return r.doctor, nil
}
func (r *memDoctorRepo) SetClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error {
	return nil
}

func newTestService() (*Service, *memClinicRepo, *model.Doctor) {
	doctor := &model.Doctor{}
	doctor.ID = uuid.New()
	repo := &memClinicRepo{}
	return NewService(repo, &memDoctorRepo{doctor: doctor}), repo, doctor
}

func validScheduleRequest() *model.UpdateScheduleRequest {
	return &model.UpdateScheduleRequest{
		Timezone:            "Africa/Cairo",
		SlotDurationMinutes: 30,
		Weekly:              model.DefaultWeeklySchedule(),
	}
}

func TestUpsertClinic_CreatesWithScheduleDefaults(t *testing.T) {
	svc, _, doctor := newTestService()

	clinic, err := svc.UpsertClinic(context.Background(), doctor.ID, &model.UpsertClinicRequest{
		Name: "Clinexa", Address: "12 Nile St", Phone: "0100000000",
	})
	require.NoError(t, err)

	assert.Equal(t, model.DefaultTimezone, clinic.Timezone)
	assert.Equal(t, model.DefaultSlotDuration, clinic.SlotDurationMinutes)
	assert.Len(t, clinic.Weekly, 7)

	fri, ok := clinic.Weekly.For("fri")
	require.True(t, ok)
	assert.False(t, fri.Enabled)
}

func TestUpsertClinic_UpdatePreservesSchedule(t *testing.T) {
	svc, _, doctor := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertClinic(ctx, doctor.ID, &model.UpsertClinicRequest{
		Name: "Clinexa", Address: "12 Nile St", Phone: "0100000000",
	})
	require.NoError(t, err)

	req := validScheduleRequest()
	req.SlotDurationMinutes = 45
	_, err = svc.UpdateSchedule(ctx, doctor.ID, req)
	require.NoError(t, err)

	clinic, err := svc.UpsertClinic(ctx, doctor.ID, &model.UpsertClinicRequest{
		Name: "Clinexa Renamed", Address: "14 Nile St", Phone: "0100000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "Clinexa Renamed", clinic.Name)
	assert.Equal(t, 45, clinic.SlotDurationMinutes)
}

func TestUpdateSchedule_InvalidatesCache(t *testing.T) {
	svc, _, doctor := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertClinic(ctx, doctor.ID, &model.UpsertClinicRequest{
		Name: "Clinexa", Address: "12 Nile St", Phone: "0100000000",
	})
	require.NoError(t, err)

	first, err := svc.GetPrimaryClinic(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, first.SlotDurationMinutes)

	req := validScheduleRequest()
	req.SlotDurationMinutes = 60
	_, err = svc.UpdateSchedule(ctx, doctor.ID, req)
	require.NoError(t, err)

	fresh, err := svc.GetPrimaryClinic(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, fresh.SlotDurationMinutes)
}

func TestValidateScheduleRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.UpdateScheduleRequest)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(r *model.UpdateScheduleRequest) {},
		},
		{
			name: "overnight window is valid",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Weekly[0].From = "22:00"
				r.Weekly[0].To = "02:00"
			},
		},
		{
			name:    "unknown timezone",
			mutate:  func(r *model.UpdateScheduleRequest) { r.Timezone = "Mars/Olympus_Mons" },
			wantErr: "timezone",
		},
		{
			name:    "slot duration too small",
			mutate:  func(r *model.UpdateScheduleRequest) { r.SlotDurationMinutes = 5 },
			wantErr: "slot duration",
		},
		{
			name:    "slot duration too large",
			mutate:  func(r *model.UpdateScheduleRequest) { r.SlotDurationMinutes = 180 },
			wantErr: "slot duration",
		},
		{
			name:    "missing weekday",
			mutate:  func(r *model.UpdateScheduleRequest) { r.Weekly = r.Weekly[:6] },
			wantErr: "one entry per weekday",
		},
		{
			name: "duplicate weekday",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Weekly[1].Day = r.Weekly[0].Day
			},
			wantErr: "duplicate weekday",
		},
		{
			name: "unknown weekday code",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Weekly[0].Day = "monday"
			},
			wantErr: "unknown weekday",
		},
		{
			name: "malformed time",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Weekly[0].From = "9:00"
			},
			wantErr: "invalid time",
		},
		{
			name: "empty window",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Weekly[0].From = "09:00"
				r.Weekly[0].To = "09:00"
			},
			wantErr: "cannot be empty",
		},
		{
			name: "malformed exception date",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{{Date: "11-01-2026", Type: model.ExceptionClosed}}
			},
			wantErr: "invalid exception date",
		},
		{
			name: "unknown exception type",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{{Date: "2026-01-11", Type: "holiday"}}
			},
			wantErr: "unknown exception type",
		},
		{
			name: "duplicate exception date",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{
					{Date: "2026-02-01", Type: model.ExceptionClosed},
					{Date: "2026-02-01", Type: model.ExceptionCustom, From: "10:00", To: "14:00"},
				}
			},
			wantErr: "duplicate exception",
		},
		{
			name: "distinct exception dates are valid",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{
					{Date: "2026-02-01", Type: model.ExceptionClosed},
					{Date: "2026-02-02", Type: model.ExceptionCustom, From: "10:00", To: "14:00"},
				}
			},
		},
		{
			name: "custom exception needs window",
			mutate: func(r *model.UpdateScheduleRequest) {
				r.Exceptions = model.ScheduleExceptions{{Date: "2026-01-11", Type: model.ExceptionCustom}}
			},
			wantErr: "invalid time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validScheduleRequest()
			tt.mutate(req)
			err := ValidateScheduleRequest(req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
