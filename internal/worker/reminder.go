package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/clinexa/booking-api/internal/email"
	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/internal/service/event"
	"github.com/clinexa/booking-api/internal/service/notification"
	"github.com/clinexa/booking-api/pkg/logger"
	"github.com/clinexa/booking-api/pkg/metrics"
)

// ReminderWorker scans for appointments starting within the lead window and
// sends each one reminder exactly once; reminder_sent_at is the dedupe mark.
type ReminderWorker struct {
	apptRepo    repository.AppointmentRepository
	patientRepo repository.PatientRepository
	userRepo    repository.UserRepository
	clinicRepo  repository.ClinicRepository
	emailSvc    email.Service
	notifSvc    *notification.Service
	eventSvc    *event.Service
	lead        time.Duration
	interval    time.Duration
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewReminderWorker(
	apptRepo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	userRepo repository.UserRepository,
	clinicRepo repository.ClinicRepository,
	emailSvc email.Service,
	notifSvc *notification.Service,
	eventSvc *event.Service,
	lead, interval time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ReminderWorker {
	if lead <= 0 {
		lead = 10 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderWorker{
		apptRepo:    apptRepo,
		patientRepo: patientRepo,
		userRepo:    userRepo,
		clinicRepo:  clinicRepo,
		emailSvc:    emailSvc,
		notifSvc:    notifSvc,
		eventSvc:    eventSvc,
		lead:        lead,
		interval:    interval,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting reminder worker", "lead", w.lead.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down reminder worker")
			return
		case <-ticker.C:
			if err := w.run(ctx); err != nil {
				w.logger.Error(err, "Reminder scan failed")
			}
		}
	}
}

func (w *ReminderWorker) run(ctx context.Context) error {
	now := w.now().UTC()
	due, err := w.apptRepo.ListDueReminders(ctx, now, now.Add(w.lead))
	if err != nil {
		return fmt.Errorf("failed to list due reminders: %w", err)
	}

	for _, apt := range due {
		if err := w.remind(ctx, apt); err != nil {
			w.logger.Error(err, "Failed to send reminder", "appointment_id", apt.ID.String())
			continue
		}
		if err := w.apptRepo.MarkReminderSent(ctx, apt.ID, w.now().UTC()); err != nil {
			w.logger.Error(err, "Failed to mark reminder sent", "appointment_id", apt.ID.String())
		}
	}
	return nil
}

func (w *ReminderWorker) remind(ctx context.Context, apt *model.Appointment) error {
	patient, err := w.patientRepo.Get(ctx, apt.PatientID)
	if err != nil {
		return fmt.Errorf("failed to get patient: %w", err)
	}
	user, err := w.userRepo.Get(ctx, patient.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	when := clinicLocalTime(ctx, w.clinicRepo, apt)

	if err := w.emailSvc.SendAppointmentReminder(ctx, user.Email, user.Name, when); err != nil {
		return err
	}

	w.notifSvc.Notify(ctx, user.ID, model.NotificationReminder,
		"Upcoming appointment",
		fmt.Sprintf("Your appointment starts at %s.", when),
		model.JSONMap{"appointment_id": apt.ID.String()})

	_ = w.eventSvc.Emit(ctx, event.TypeAppointmentReminder, apt)

	w.metrics.RemindersSent.Inc()
	return nil
}
