package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
)

// Domain event types published through the outbox.
const (
	TypeAppointmentCreated     = "appointment.created"
	TypeAppointmentConfirmed   = "appointment.confirmed"
	TypeAppointmentCancelled   = "appointment.cancelled"
	TypeAppointmentCompleted   = "appointment.completed"
	TypeAppointmentRescheduled = "appointment.rescheduled"
	TypeAppointmentReminder    = "appointment.reminder"
	TypeUserRegistered         = "user.registered"
)

const processedRetention = 24 * time.Hour

// Service records domain events in the outbox table. The worker process
// publishes them to the broker; Emit itself never talks to the network.
type Service struct {
	outboxRepo repository.OutboxRepository
}

func NewService(outboxRepo repository.OutboxRepository) *Service {
	return &Service{outboxRepo: outboxRepo}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// CleanupProcessedEvents deletes processed events older than the retention
// window. Called periodically by the worker.
func (s *Service) CleanupProcessedEvents(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-processedRetention)
	count, err := s.outboxRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup events: %w", err)
	}
	return count, nil
}
