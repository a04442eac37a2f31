package patient

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/pkg/errors"
)

type Service struct {
	repo     repository.PatientRepository
	userRepo repository.UserRepository
}

func NewService(repo repository.PatientRepository, userRepo repository.UserRepository) *Service {
	return &Service{repo: repo, userRepo: userRepo}
}

// Profile joins the patient record with its user account for display.
type Profile struct {
	*model.Patient
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	patient, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("patient profile not found")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	user, err := s.userRepo.Get(ctx, patient.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &Profile{Patient: patient, Name: user.Name, Email: user.Email}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdatePatientRequest) (*Profile, error) {
	patient, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("patient profile not found")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	return s.GetProfile(ctx, userID)
}
