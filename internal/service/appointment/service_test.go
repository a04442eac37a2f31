package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/internal/service/clinic"
	"github.com/clinexa/booking-api/internal/service/event"
	"github.com/clinexa/booking-api/internal/service/notification"
	"github.com/clinexa/booking-api/pkg/errors"
	"github.com/clinexa/booking-api/pkg/logger"
	"github.com/clinexa/booking-api/pkg/metrics"
)

// Registered once; prometheus collectors cannot be registered twice in the
// same binary.
var testMetrics = metrics.NewMetrics("test", "appointments")

type fakeAppointmentRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{byID: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) holdsSlot(apt *model.Appointment) bool {
	return apt.Status != model.AppointmentStatusCancelled
}

func (r *fakeAppointmentRepo) slotTakenLocked(doctorID uuid.UUID, start time.Time, excludeID uuid.UUID) bool {
	for _, apt := range r.byID {
		if apt.ID == excludeID {
			continue
		}
		if apt.DoctorID == doctorID && apt.StartTime.Equal(start) && r.holdsSlot(apt) {
			return true
		}
	}
	return false
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holdsSlot(apt) && r.slotTakenLocked(apt.DoctorID, apt.StartTime, uuid.Nil) {
		return repository.ErrSlotTaken
	}
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	cp := *apt
	r.byID[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) Update(ctx context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[apt.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.holdsSlot(apt) && r.slotTakenLocked(apt.DoctorID, apt.StartTime, apt.ID) {
		return repository.ErrSlotTaken
	}
	cp := *apt
	r.byID[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) ExistsActiveAt(ctx context.Context, doctorID uuid.UUID, start time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exclude := uuid.Nil
	if excludeID != nil {
		exclude = *excludeID
	}
	return r.slotTakenLocked(doctorID, start, exclude), nil
}

func (r *fakeAppointmentRepo) ListActiveInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var instants []time.Time
	for _, apt := range r.byID {
		if apt.DoctorID == doctorID && r.holdsSlot(apt) &&
			!apt.StartTime.Before(from) && apt.StartTime.Before(to) {
			instants = append(instants, apt.StartTime)
		}
	}
	return instants, nil
}

func (r *fakeAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.byID {
		if apt.PatientID == patientID {
			cp := *apt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.byID {
		if apt.DoctorID != doctorID {
			continue
		}
		if from != nil && apt.StartTime.Before(*from) {
			continue
		}
		if to != nil && !apt.StartTime.Before(*to) {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, status model.AppointmentStatus, from, to *time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.byID {
		if status != "" && apt.Status != status {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error { return nil }

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }

type fakeDoctorRepo struct {
	doctor *model.Doctor
}

func (r *fakeDoctorRepo) Create(ctx context.Context, d *model.Doctor) error { return nil }
func (r *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return r.doctor, nil
}
func (r *fakeDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	return r.doctor, nil
}
func (r *fakeDoctorRepo) GetPrimary(ctx context.Context) (*model.Doctor, error) {
	if r.doctor == nil {
		return nil, repository.ErrNotFound
	}
	return r.doctor, nil
}
func (r *fakeDoctorRepo) SetClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error {
	return nil
}

type fakeClinicRepo struct {
	clinic *model.Clinic
}

func (r *fakeClinicRepo) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	return r.clinic, nil
}
func (r *fakeClinicRepo) GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Clinic, error) {
	if r.clinic == nil {
		return nil, repository.ErrNotFound
	}
	return r.clinic, nil
}
func (r *fakeClinicRepo) Create(ctx context.Context, c *model.Clinic) error         { return nil }
func (r *fakeClinicRepo) Update(ctx context.Context, c *model.Clinic) error         { return nil }
func (r *fakeClinicRepo) UpdateSchedule(ctx context.Context, c *model.Clinic) error { return nil }

type fakeNotificationRepo struct{}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error { return nil }
func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error) {
	return nil, nil
}
func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error { return nil }

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}
func (r *fakeOutboxRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}
func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }
func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	return nil
}
func (r *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	svc        *Service
	repo       *fakeAppointmentRepo
	outbox     *fakeOutboxRepo
	patient    *model.Patient
	patientAct *model.Actor
	doctorAct  *model.Actor
	clinic     *model.Clinic
}

// testClinic opens every day 09:00-17:00 in Cairo with 30-minute slots.
func testClinic() *model.Clinic {
	weekly := make(model.WeeklySchedule, 0, 7)
	for _, day := range model.WeekdayCodes {
		weekly = append(weekly, model.WeeklyHours{
			Day: day, Enabled: true, From: "09:00", To: "17:00",
		})
	}
	c := &model.Clinic{
		Timezone:            "Africa/Cairo",
		SlotDurationMinutes: 30,
		Weekly:              weekly,
	}
	c.ID = uuid.New()
	return c
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	patientUser := uuid.New()
	doctorUser := uuid.New()
	patient := &model.Patient{UserID: patientUser}
	patient.ID = uuid.New()
	doctor := &model.Doctor{UserID: doctorUser}
	doctor.ID = uuid.New()
	c := testClinic()
	c.DoctorID = doctor.ID

	repo := newFakeAppointmentRepo()
	outbox := &fakeOutboxRepo{}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel})

	clinicSvc := clinic.NewService(&fakeClinicRepo{clinic: c}, &fakeDoctorRepo{doctor: doctor})
	notifSvc := notification.NewService(&fakeNotificationRepo{}, log)
	eventSvc := event.NewService(outbox)

	svc := NewService(
		repo,
		&fakePatientRepo{patients: map[uuid.UUID]*model.Patient{patientUser: patient}},
		&fakeDoctorRepo{doctor: doctor},
		clinicSvc,
		notifSvc,
		eventSvc,
		testMetrics,
	)
	// Pin time to a Monday morning in Cairo so the working day is ahead.
	svc.now = func() time.Time {
		return time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)
	}

	return &testEnv{
		svc:        svc,
		repo:       repo,
		outbox:     outbox,
		patient:    patient,
		patientAct: &model.Actor{UserID: patientUser, Role: model.RolePatient},
		doctorAct:  &model.Actor{UserID: doctorUser, Role: model.RoleDoctor},
		clinic:     c,
	}
}

func TestBook_CreatesPendingAppointment(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.Book(context.Background(), env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00", Reason: "checkup",
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, env.patient.ID, apt.PatientID)
	assert.Equal(t, model.SourcePatientApp, apt.Source)
	// 10:00 Cairo is 08:00 UTC in January.
	assert.Equal(t, time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC), apt.StartTime)

	require.Len(t, env.outbox.events, 1)
	assert.Equal(t, event.TypeAppointmentCreated, env.outbox.events[0].EventType)
}

func TestBook_RejectsOutOfHours(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Book(context.Background(), env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "18:00",
	})
	require.Error(t, err)
	assert.True(t, errors.IsOutOfHours(err))
	assert.Contains(t, err.Error(), "working hours on Monday")
}

func TestBook_RejectsPastInstant(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Book(context.Background(), env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-05", Time: "10:00",
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestBook_RejectsTakenSlot(t *testing.T) {
	env := newTestEnv(t)
	req := &model.CreateAppointmentRequest{Date: "2026-01-12", Time: "10:00"}

	_, err := env.svc.Book(context.Background(), env.patientAct, req)
	require.NoError(t, err)

	_, err = env.svc.Book(context.Background(), env.patientAct, req)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Contains(t, err.Error(), "This time slot is already booked")
}

func TestListForDoctor_DayView(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Book(context.Background(), env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	apts, err := env.svc.ListForDoctor(context.Background(), env.doctorAct, "2026-01-12")
	require.NoError(t, err)
	assert.Len(t, apts, 1)

	apts, err = env.svc.ListForDoctor(context.Background(), env.doctorAct, "2026-01-13")
	require.NoError(t, err)
	assert.Empty(t, apts)
}

func TestListForDoctor_PatientForbidden(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ListForDoctor(context.Background(), env.patientAct, "")
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))
}

func TestBook_ConcurrentRequestsOneWinner(t *testing.T) {
	env := newTestEnv(t)
	req := &model.CreateAppointmentRequest{Date: "2026-01-12", Time: "11:00"}

	const racers = 8
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Book(context.Background(), env.patientAct, req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
		} else if errors.IsConflict(err) {
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
}

func TestBook_CancelledSlotCanBeRebooked(t *testing.T) {
	env := newTestEnv(t)
	req := &model.CreateAppointmentRequest{Date: "2026-01-12", Time: "10:00"}

	apt, err := env.svc.Book(context.Background(), env.patientAct, req)
	require.NoError(t, err)

	_, err = env.svc.Cancel(context.Background(), env.patientAct, apt.ID, nil)
	require.NoError(t, err)

	_, err = env.svc.Book(context.Background(), env.patientAct, req)
	assert.NoError(t, err)
}

func TestConfirm_RequiresStaffRole(t *testing.T) {
	env := newTestEnv(t)

	apt, err := env.svc.Book(context.Background(), env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	_, err = env.svc.Confirm(context.Background(), env.patientAct, apt.ID)
	assert.True(t, errors.IsForbidden(err))

	confirmed, err := env.svc.Confirm(context.Background(), env.doctorAct, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
}

func TestLifecycle_TransitionGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.Book(ctx, env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	// Pending cannot be completed.
	_, err = env.svc.Complete(ctx, env.doctorAct, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Contains(t, err.Error(), "only confirmed appointments can be completed")

	_, err = env.svc.Confirm(ctx, env.doctorAct, apt.ID)
	require.NoError(t, err)

	// Confirmed cannot be confirmed again.
	_, err = env.svc.Confirm(ctx, env.doctorAct, apt.ID)
	assert.True(t, errors.IsConflict(err))

	_, err = env.svc.Complete(ctx, env.doctorAct, apt.ID)
	require.NoError(t, err)

	// Completed is terminal.
	_, err = env.svc.Cancel(ctx, env.doctorAct, apt.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot cancel a completed appointment")
}

func TestCancel_IsIdempotentRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.Book(ctx, env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	reason := "feeling better"
	cancelled, err := env.svc.Cancel(ctx, env.patientAct, apt.ID, &model.CancelAppointmentRequest{Reason: reason})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)

	_, err = env.svc.Cancel(ctx, env.patientAct, apt.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestReschedule_ResetsToPendingAndExcludesSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.Book(ctx, env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	_, err = env.svc.Confirm(ctx, env.doctorAct, apt.ID)
	require.NoError(t, err)

	// Rescheduling onto its own slot is allowed.
	moved, err := env.svc.Reschedule(ctx, env.patientAct, apt.ID, &model.RescheduleAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, moved.Status)

	// A slot held by another appointment conflicts.
	_, err = env.svc.Book(ctx, env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "12:00",
	})
	require.NoError(t, err)

	_, err = env.svc.Reschedule(ctx, env.patientAct, apt.ID, &model.RescheduleAppointmentRequest{
		Date: "2026-01-12", Time: "12:00",
	})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestGet_PatientOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.Book(ctx, env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	stranger := &model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	_, err = env.svc.Get(ctx, stranger, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetAvailableSlots_MarksBooked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Book(ctx, env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	resp, err := env.svc.GetAvailableSlots(ctx, "2026-01-12")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-12", resp.Date)
	assert.Equal(t, "Africa/Cairo", resp.Timezone)
	assert.Equal(t, 30, resp.SlotDurationMinutes)
	require.Len(t, resp.Slots, 16) // 8h window at 30 minutes

	bookedInstant := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	var bookedCount int
	for _, slot := range resp.Slots {
		if slot.Status == model.SlotStatusBooked {
			bookedCount++
			assert.Equal(t, bookedInstant, slot.StartTime)
		}
	}
	assert.Equal(t, 1, bookedCount)
}

func TestGetAvailableSlots_CancelledSlotAvailableAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.Book(ctx, env.patientAct, &model.CreateAppointmentRequest{
		Date: "2026-01-12", Time: "10:00",
	})
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, env.patientAct, apt.ID, nil)
	require.NoError(t, err)

	resp, err := env.svc.GetAvailableSlots(ctx, "2026-01-12")
	require.NoError(t, err)
	for _, slot := range resp.Slots {
		assert.Equal(t, model.SlotStatusAvailable, slot.Status)
	}
}
