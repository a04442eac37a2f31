package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/internal/service/event"
	"github.com/clinexa/booking-api/pkg/auth"
	"github.com/clinexa/booking-api/pkg/errors"
	"github.com/clinexa/booking-api/pkg/security"
)

// Service handles registration and login. Patient registrations create the
// linked patient profile in the same flow so booking works immediately.
type Service struct {
	userRepo    repository.UserRepository
	patientRepo repository.PatientRepository
	hasher      security.PasswordHasher
	tokens      auth.TokenService
	eventSvc    *event.Service
}

func NewService(
	userRepo repository.UserRepository,
	patientRepo repository.PatientRepository,
	hasher security.PasswordHasher,
	tokens auth.TokenService,
	eventSvc *event.Service,
) *Service {
	return &Service{
		userRepo:    userRepo,
		patientRepo: patientRepo,
		hasher:      hasher,
		tokens:      tokens,
		eventSvc:    eventSvc,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	role := req.Role
	if role == "" {
		role = model.RolePatient
	}
	// Staff accounts are provisioned out of band, never self-registered.
	if role != model.RolePatient {
		return nil, errors.Forbidden("only patient accounts can self-register")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if stderrors.Is(err, security.ErrPasswordTooShort) {
			return nil, errors.Validation("password is too short")
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		Status:       model.UserStatusActive,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict("an account with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	patient := &model.Patient{
		UserID: user.ID,
		Phone:  req.Phone,
	}
	if err := s.patientRepo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient profile: %w", err)
	}

	_ = s.eventSvc.Emit(ctx, event.TypeUserRegistered, user)

	return s.issueToken(user)
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Validation("invalid email or password")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Status != model.UserStatusActive {
		return nil, errors.Forbidden("account is disabled")
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, errors.Validation("invalid email or password")
	}

	return s.issueToken(user)
}

func (s *Service) issueToken(user *model.User) (*model.TokenResponse, error) {
	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TokenTTL().Seconds()),
		User:        user,
	}, nil
}
