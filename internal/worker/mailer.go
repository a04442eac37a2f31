package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clinexa/booking-api/internal/email"
	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/internal/schedule"
	"github.com/clinexa/booking-api/internal/service/event"
	"github.com/clinexa/booking-api/pkg/logger"
	"github.com/clinexa/booking-api/pkg/messaging"
)

// Mailer turns published appointment events into lifecycle emails. It sits
// downstream of the outbox processor, so a slow SMTP server never blocks a
// booking request.
type Mailer struct {
	broker      messaging.Broker
	patientRepo repository.PatientRepository
	userRepo    repository.UserRepository
	clinicRepo  repository.ClinicRepository
	emailSvc    email.Service
	logger      *logger.Logger
}

func NewMailer(
	broker messaging.Broker,
	patientRepo repository.PatientRepository,
	userRepo repository.UserRepository,
	clinicRepo repository.ClinicRepository,
	emailSvc email.Service,
	logger *logger.Logger,
) *Mailer {
	return &Mailer{
		broker:      broker,
		patientRepo: patientRepo,
		userRepo:    userRepo,
		clinicRepo:  clinicRepo,
		emailSvc:    emailSvc,
		logger:      logger,
	}
}

// Start subscribes to the event channels that carry mail-worthy events and
// consumes them until the context is cancelled.
func (m *Mailer) Start(ctx context.Context) error {
	channels := []string{
		event.TypeAppointmentCreated,
		event.TypeAppointmentConfirmed,
		event.TypeAppointmentCancelled,
		event.TypeAppointmentRescheduled,
		event.TypeUserRegistered,
	}

	for _, channel := range channels {
		msgs, err := m.broker.Subscribe(ctx, channel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		go m.consume(ctx, channel, msgs)
	}

	m.logger.Info("Mailer started", "channels", len(channels))
	return nil
}

func (m *Mailer) consume(ctx context.Context, channel string, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			if err := m.handle(ctx, raw); err != nil {
				m.logger.Error(err, "Failed to send lifecycle email", "channel", channel)
			}
		}
	}
}

func (m *Mailer) handle(ctx context.Context, raw []byte) error {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if msg.Type == event.TypeUserRegistered {
		var user model.User
		if err := json.Unmarshal(msg.Payload, &user); err != nil {
			return fmt.Errorf("failed to unmarshal user payload: %w", err)
		}
		return m.emailSvc.SendWelcome(ctx, user.Email, user.Name)
	}

	var apt model.Appointment
	if err := json.Unmarshal(msg.Payload, &apt); err != nil {
		return fmt.Errorf("failed to unmarshal appointment payload: %w", err)
	}

	patient, err := m.patientRepo.Get(ctx, apt.PatientID)
	if err != nil {
		return fmt.Errorf("failed to get patient: %w", err)
	}
	user, err := m.userRepo.Get(ctx, patient.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	when := clinicLocalTime(ctx, m.clinicRepo, &apt)

	switch msg.Type {
	case event.TypeAppointmentCreated, event.TypeAppointmentRescheduled:
		// A reschedule resets the appointment to pending, so the patient gets
		// the same awaiting-confirmation mail as on creation.
		return m.emailSvc.SendAppointmentCreated(ctx, user.Email, user.Name, when)
	case event.TypeAppointmentConfirmed:
		return m.emailSvc.SendAppointmentConfirmed(ctx, user.Email, user.Name, when)
	case event.TypeAppointmentCancelled:
		reason := ""
		if apt.CancellationReason != nil {
			reason = *apt.CancellationReason
		}
		return m.emailSvc.SendAppointmentCancelled(ctx, user.Email, user.Name, when, reason)
	default:
		return nil
	}
}

// clinicLocalTime renders the start instant in the clinic's timezone for
// messages; falls back to UTC when the clinic cannot be loaded.
func clinicLocalTime(ctx context.Context, repo repository.ClinicRepository, apt *model.Appointment) string {
	if apt.ClinicID != nil {
		if clinic, err := repo.Get(ctx, *apt.ClinicID); err == nil {
			if loc, err := schedule.Location(clinic.Timezone); err == nil {
				wc := schedule.WallClockFromInstant(apt.StartTime, loc)
				return fmt.Sprintf("%s %s", wc.Date, wc.Time)
			}
		}
	}
	return apt.StartTime.UTC().Format("2006-01-02 15:04 MST")
}
