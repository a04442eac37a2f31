package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/pkg/logger"
)

// Service persists in-app notifications. Failures here never block the
// booking flow; callers treat notification delivery as best effort.
type Service struct {
	repo   repository.NotificationRepository
	logger *logger.Logger
}

func NewService(repo repository.NotificationRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Notify(ctx context.Context, userID uuid.UUID, notifType, title, body string, data model.JSONMap) {
	n := &model.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error(err, "Failed to create notification",
			"user_id", userID.String(),
			"type", notifType)
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}
