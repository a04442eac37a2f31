package appointment

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/internal/schedule"
	"github.com/clinexa/booking-api/internal/service/clinic"
	"github.com/clinexa/booking-api/internal/service/event"
	"github.com/clinexa/booking-api/internal/service/notification"
	"github.com/clinexa/booking-api/pkg/errors"
	"github.com/clinexa/booking-api/pkg/metrics"
)

const slotTakenMessage = "This time slot is already booked"

// Service implements the booking flow and the appointment lifecycle.
type Service struct {
	repo        repository.AppointmentRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	clinicSvc   *clinic.Service
	notifSvc    *notification.Service
	eventSvc    *event.Service
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	clinicSvc *clinic.Service,
	notifSvc *notification.Service,
	eventSvc *event.Service,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:        repo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		clinicSvc:   clinicSvc,
		notifSvc:    notifSvc,
		eventSvc:    eventSvc,
		metrics:     metrics,
		now:         time.Now,
	}
}

// resolveStartTime turns the request's slot reference into a UTC instant.
// Clients may send either an absolute start_time or a clinic-local date+time
// pair; the pair is resolved against the clinic's timezone rules for that
// calendar date. Seconds are never part of the slot grid.
func resolveStartTime(c *model.Clinic, startTime *time.Time, date, hhmm string) (time.Time, error) {
	if startTime != nil {
		return startTime.UTC().Truncate(time.Minute), nil
	}
	if date == "" || hhmm == "" {
		return time.Time{}, errors.Validation("either start_time or date and time are required")
	}

	loc, err := schedule.Location(c.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.InstantFromWallClock(date, hhmm, loc)
}

// Book creates a pending appointment on the primary doctor's calendar. The
// slot must lie inside working hours and in the future; the storage layer
// rejects a taken slot even under concurrent requests.
func (s *Service) Book(ctx context.Context, actor *model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	patient, err := s.resolvePatient(ctx, actor, req.PatientID)
	if err != nil {
		return nil, err
	}

	doctor, err := s.doctorRepo.GetPrimary(ctx)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("no doctor is available for booking")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	c, err := s.clinicSvc.GetPrimaryClinic(ctx)
	if err != nil {
		return nil, err
	}

	startTime, err := resolveStartTime(c, req.StartTime, req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	if !startTime.After(s.now().UTC()) {
		return nil, errors.Validation("appointment cannot be scheduled in the past")
	}

	if err := schedule.CheckWorkingHours(c, startTime); err != nil {
		if errors.IsOutOfHours(err) {
			s.metrics.OutOfHoursRejects.Inc()
		}
		return nil, err
	}

	apt := &model.Appointment{
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		ClinicID:  &c.ID,
		StartTime: startTime,
		Status:    model.AppointmentStatusPending,
		Reason:    req.Reason,
		Notes:     req.Notes,
		Source:    sourceForRole(actor.Role),
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		if stderrors.Is(err, repository.ErrSlotTaken) {
			s.metrics.BookingConflicts.Inc()
			return nil, errors.Conflict(slotTakenMessage)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.metrics.AppointmentsBooked.WithLabelValues(string(apt.Source)).Inc()

	s.emitAndNotify(ctx, apt, patient.UserID, doctor.UserID,
		event.TypeAppointmentCreated,
		model.NotificationAppointmentCreated,
		"Appointment requested",
		"Your appointment request has been received and is awaiting confirmation.")

	return apt, nil
}

// Confirm moves a pending appointment to confirmed. Doctor and admin only.
func (s *Service) Confirm(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	if actor.Role == model.RolePatient {
		return nil, errors.Forbidden("patients cannot confirm appointments")
	}
	return s.transition(ctx, actor, id, model.ActionConfirm, func(apt *model.Appointment) {
		apt.Status = model.AppointmentStatusConfirmed
	}, event.TypeAppointmentConfirmed, model.NotificationAppointmentConfirmed,
		"Appointment confirmed", "Your appointment has been confirmed.")
}

// Complete marks a confirmed appointment as completed. Doctor and admin only.
func (s *Service) Complete(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	if actor.Role == model.RolePatient {
		return nil, errors.Forbidden("patients cannot complete appointments")
	}
	return s.transition(ctx, actor, id, model.ActionComplete, func(apt *model.Appointment) {
		apt.Status = model.AppointmentStatusCompleted
	}, event.TypeAppointmentCompleted, model.NotificationAppointmentCompleted,
		"Appointment completed", "Your appointment has been marked as completed.")
}

// Cancel cancels a pending or confirmed appointment. Patients may cancel
// their own; doctors and admins may cancel any. The slot is freed for
// rebooking immediately.
func (s *Service) Cancel(ctx context.Context, actor *model.Actor, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.getForActor(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := model.ValidateTransition(apt.Status, model.ActionCancel); err != nil {
		s.metrics.AppointmentActions.WithLabelValues(string(model.ActionCancel), "rejected").Inc()
		return nil, err
	}

	now := s.now().UTC()
	apt.Status = model.AppointmentStatusCancelled
	apt.CancelledAt = &now
	apt.CancelledBy = &actor.UserID
	if req != nil && req.Reason != "" {
		apt.CancellationReason = &req.Reason
	}

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.metrics.AppointmentActions.WithLabelValues(string(model.ActionCancel), "ok").Inc()
	s.notifyLifecycle(ctx, apt, event.TypeAppointmentCancelled, model.NotificationAppointmentCancelled,
		"Appointment cancelled", "Your appointment has been cancelled.")

	return apt, nil
}

// Reschedule moves a pending or confirmed appointment to a new slot. The
// appointment returns to pending for re-confirmation. Keeping the original
// instant is allowed; the self-exclusion keeps it from conflicting with
// itself.
func (s *Service) Reschedule(ctx context.Context, actor *model.Actor, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.getForActor(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := model.ValidateTransition(apt.Status, model.ActionReschedule); err != nil {
		s.metrics.AppointmentActions.WithLabelValues(string(model.ActionReschedule), "rejected").Inc()
		return nil, err
	}

	c, err := s.clinicSvc.GetPrimaryClinic(ctx)
	if err != nil {
		return nil, err
	}

	startTime, err := resolveStartTime(c, req.StartTime, req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	if !startTime.After(s.now().UTC()) {
		return nil, errors.Validation("appointment cannot be scheduled in the past")
	}

	if err := schedule.CheckWorkingHours(c, startTime); err != nil {
		if errors.IsOutOfHours(err) {
			s.metrics.OutOfHoursRejects.Inc()
		}
		return nil, err
	}

	taken, err := s.repo.ExistsActiveAt(ctx, apt.DoctorID, startTime, &apt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot availability: %w", err)
	}
	if taken {
		s.metrics.BookingConflicts.Inc()
		return nil, errors.Conflict(slotTakenMessage)
	}

	apt.StartTime = startTime
	apt.Status = model.AppointmentStatusPending

	if err := s.repo.Update(ctx, apt); err != nil {
		if stderrors.Is(err, repository.ErrSlotTaken) {
			s.metrics.BookingConflicts.Inc()
			return nil, errors.Conflict(slotTakenMessage)
		}
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	s.metrics.AppointmentActions.WithLabelValues(string(model.ActionReschedule), "ok").Inc()
	s.notifyLifecycle(ctx, apt, event.TypeAppointmentRescheduled, model.NotificationAppointmentRescheduled,
		"Appointment rescheduled", "Your appointment has been moved and awaits re-confirmation.")

	return apt, nil
}

// Get returns one appointment, enforcing patient ownership.
func (s *Service) Get(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	return s.getForActor(ctx, actor, id)
}

// ListForActor lists the caller's appointments: patients see their own,
// doctors and admins see the full calendar with optional filters.
func (s *Service) ListForActor(ctx context.Context, actor *model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if actor.Role == model.RolePatient {
		return s.ListMine(ctx, actor)
	}

	var from, to *time.Time
	if filters != nil && filters.Date != "" {
		var err error
		from, to, err = s.dayBounds(ctx, filters.Date)
		if err != nil {
			return nil, err
		}
	}

	status := model.AppointmentStatus("")
	if filters != nil {
		status = filters.Status
	}
	return s.repo.List(ctx, status, from, to)
}

// ListMine returns the caller's own appointments.
func (s *Service) ListMine(ctx context.Context, actor *model.Actor) ([]*model.Appointment, error) {
	patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("patient profile not found")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return s.repo.ListByPatient(ctx, patient.ID)
}

// ListForDoctor returns the doctor's calendar, optionally scoped to one
// clinic-local day. Doctors see their own calendar; admins see the primary
// doctor's.
func (s *Service) ListForDoctor(ctx context.Context, actor *model.Actor, date string) ([]*model.Appointment, error) {
	if actor.Role == model.RolePatient {
		return nil, errors.Forbidden("patients cannot view the doctor calendar")
	}

	var (
		doctor *model.Doctor
		err    error
	)
	if actor.Role == model.RoleDoctor {
		doctor, err = s.doctorRepo.GetByUserID(ctx, actor.UserID)
	} else {
		doctor, err = s.doctorRepo.GetPrimary(ctx)
	}
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("doctor profile not found")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	var from, to *time.Time
	if date != "" {
		from, to, err = s.dayBounds(ctx, date)
		if err != nil {
			return nil, err
		}
	}
	return s.repo.ListByDoctor(ctx, doctor.ID, from, to)
}

// dayBounds converts a clinic-local calendar date to the UTC window covering
// that day.
func (s *Service) dayBounds(ctx context.Context, date string) (*time.Time, *time.Time, error) {
	c, err := s.clinicSvc.GetPrimaryClinic(ctx)
	if err != nil {
		return nil, nil, err
	}
	loc, err := schedule.Location(c.Timezone)
	if err != nil {
		return nil, nil, err
	}
	dayStart, err := schedule.InstantFromWallClock(date, "00:00", loc)
	if err != nil {
		return nil, nil, err
	}
	dayEnd := dayStart.Add(24 * time.Hour)
	return &dayStart, &dayEnd, nil
}

// GetAvailableSlots generates the slot grid for a clinic-local date and
// marks slots held by non-cancelled appointments as booked.
func (s *Service) GetAvailableSlots(ctx context.Context, date string) (*model.AvailableSlotsResponse, error) {
	c, err := s.clinicSvc.GetPrimaryClinic(ctx)
	if err != nil {
		return nil, err
	}

	doctor, err := s.doctorRepo.GetPrimary(ctx)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("no doctor is available for booking")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	instants, err := schedule.GenerateSlots(c, date)
	if err != nil {
		return nil, err
	}
	s.metrics.SlotsGenerated.Add(float64(len(instants)))

	duration := c.SlotDurationMinutes
	if duration <= 0 {
		duration = model.DefaultSlotDuration
	}

	resp := &model.AvailableSlotsResponse{
		Date:                date,
		Timezone:            c.Timezone,
		SlotDurationMinutes: duration,
		Slots:               make([]model.Slot, 0, len(instants)),
	}
	if len(instants) == 0 {
		return resp, nil
	}

	booked, err := s.repo.ListActiveInstants(ctx, doctor.ID,
		instants[0], instants[len(instants)-1].Add(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}
	bookedSet := make(map[time.Time]bool, len(booked))
	for _, b := range booked {
		bookedSet[b.UTC()] = true
	}

	for _, instant := range instants {
		status := model.SlotStatusAvailable
		if bookedSet[instant] {
			status = model.SlotStatusBooked
		}
		resp.Slots = append(resp.Slots, model.Slot{StartTime: instant, Status: status})
	}
	return resp, nil
}

// transition applies a lifecycle action guarded by the state machine.
func (s *Service) transition(
	ctx context.Context,
	actor *model.Actor,
	id uuid.UUID,
	action model.AppointmentAction,
	apply func(*model.Appointment),
	eventType, notifType, title, body string,
) (*model.Appointment, error) {
	apt, err := s.getForActor(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := model.ValidateTransition(apt.Status, action); err != nil {
		s.metrics.AppointmentActions.WithLabelValues(string(action), "rejected").Inc()
		return nil, err
	}

	apply(apt)

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.metrics.AppointmentActions.WithLabelValues(string(action), "ok").Inc()
	s.notifyLifecycle(ctx, apt, eventType, notifType, title, body)
	return apt, nil
}

// getForActor loads an appointment and rejects patients touching records
// that are not theirs.
func (s *Service) getForActor(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("appointment not found")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if actor.Role == model.RolePatient {
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, errors.NotFound("patient profile not found")
			}
			return nil, fmt.Errorf("failed to get patient: %w", err)
		}
		if apt.PatientID != patient.ID {
			return nil, errors.Forbidden("appointment belongs to another patient")
		}
	}
	return apt, nil
}

// resolvePatient picks the booking's patient: patients book for themselves,
// staff may book on behalf of a named patient.
func (s *Service) resolvePatient(ctx context.Context, actor *model.Actor, patientID *uuid.UUID) (*model.Patient, error) {
	if actor.Role == model.RolePatient || patientID == nil {
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, errors.NotFound("patient profile not found")
			}
			return nil, fmt.Errorf("failed to get patient: %w", err)
		}
		return patient, nil
	}

	patient, err := s.patientRepo.Get(ctx, *patientID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("patient not found")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) notifyLifecycle(ctx context.Context, apt *model.Appointment, eventType, notifType, title, body string) {
	patient, err := s.patientRepo.Get(ctx, apt.PatientID)
	if err != nil {
		return
	}
	doctor, err := s.doctorRepo.Get(ctx, apt.DoctorID)
	if err != nil {
		return
	}
	s.emitAndNotify(ctx, apt, patient.UserID, doctor.UserID, eventType, notifType, title, body)
}

// emitAndNotify records the domain event and in-app notifications. Both are
// best effort; the state change has already been committed.
func (s *Service) emitAndNotify(ctx context.Context, apt *model.Appointment, patientUserID, doctorUserID uuid.UUID, eventType, notifType, title, body string) {
	_ = s.eventSvc.Emit(ctx, eventType, apt)

	data := model.JSONMap{
		"appointment_id": apt.ID.String(),
		"start_time":     apt.StartTime.Format(time.RFC3339),
		"status":         string(apt.Status),
	}
	s.notifSvc.Notify(ctx, patientUserID, notifType, title, body, data)
	s.notifSvc.Notify(ctx, doctorUserID, notifType, title, body, data)
}

func sourceForRole(role model.Role) model.AppointmentSource {
	switch role {
	case model.RoleDoctor:
		return model.SourceDoctorPanel
	case model.RoleAdmin:
		return model.SourceAdminPanel
	default:
		return model.SourcePatientApp
	}
}
