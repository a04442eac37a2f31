package clinic

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/internal/schedule"
	"github.com/clinexa/booking-api/pkg/errors"
)

const (
	clinicCacheKey = "clinic"
	cacheTTL       = 5 * time.Minute
)

// Service manages the clinic profile and its schedule configuration. The
// clinic record is read on every booking, so lookups go through a short
// lived cache that schedule writes invalidate.
type Service struct {
	repo       repository.ClinicRepository
	doctorRepo repository.DoctorRepository
	cache      *cache.Cache
}

func NewService(repo repository.ClinicRepository, doctorRepo repository.DoctorRepository) *Service {
	return &Service{
		repo:       repo,
		doctorRepo: doctorRepo,
		cache:      cache.New(cacheTTL, 10*time.Minute),
	}
}

// GetPrimaryClinic returns the single clinic of the V1 deployment.
func (s *Service) GetPrimaryClinic(ctx context.Context) (*model.Clinic, error) {
	if cached, ok := s.cache.Get(clinicCacheKey); ok {
		return cached.(*model.Clinic), nil
	}

	doctor, err := s.doctorRepo.GetPrimary(ctx)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("no doctor is configured")
		}
		return nil, fmt.Errorf("failed to get primary doctor: %w", err)
	}

	clinic, err := s.repo.GetByDoctor(ctx, doctor.ID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("clinic is not configured")
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}

	s.cache.Set(clinicCacheKey, clinic, cache.DefaultExpiration)
	return clinic, nil
}

// UpsertClinic creates the clinic profile on first call and updates it on
// subsequent ones. The schedule keeps its defaults until changed explicitly.
func (s *Service) UpsertClinic(ctx context.Context, doctorID uuid.UUID, req *model.UpsertClinicRequest) (*model.Clinic, error) {
	clinic, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}

	if clinic == nil {
		clinic = &model.Clinic{
			DoctorID:            doctorID,
			Name:                req.Name,
			Address:             req.Address,
			City:                req.City,
			Phone:               req.Phone,
			LocationLink:        req.LocationLink,
			Timezone:            model.DefaultTimezone,
			SlotDurationMinutes: model.DefaultSlotDuration,
			Weekly:              model.DefaultWeeklySchedule(),
			Exceptions:          model.ScheduleExceptions{},
		}
		if err := s.repo.Create(ctx, clinic); err != nil {
			return nil, fmt.Errorf("failed to create clinic: %w", err)
		}
		if err := s.doctorRepo.SetClinic(ctx, doctorID, clinic.ID); err != nil {
			return nil, fmt.Errorf("failed to link doctor to clinic: %w", err)
		}
	} else {
		clinic.Name = req.Name
		clinic.Address = req.Address
		clinic.City = req.City
		clinic.Phone = req.Phone
		clinic.LocationLink = req.LocationLink
		if err := s.repo.Update(ctx, clinic); err != nil {
			return nil, fmt.Errorf("failed to update clinic: %w", err)
		}
	}

	s.cache.Delete(clinicCacheKey)
	return clinic, nil
}

// UpdateSchedule replaces the clinic's schedule configuration after
// validating it as a whole. Partial updates are not supported; the client
// always sends the full weekly template.
func (s *Service) UpdateSchedule(ctx context.Context, doctorID uuid.UUID, req *model.UpdateScheduleRequest) (*model.Clinic, error) {
	clinic, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("clinic is not configured")
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}

	if err := ValidateScheduleRequest(req); err != nil {
		return nil, err
	}

	if req.Timezone != "" {
		clinic.Timezone = req.Timezone
	}
	clinic.SlotDurationMinutes = req.SlotDurationMinutes
	clinic.Weekly = req.Weekly
	if req.Exceptions != nil {
		clinic.Exceptions = req.Exceptions
	} else {
		clinic.Exceptions = model.ScheduleExceptions{}
	}

	if err := s.repo.UpdateSchedule(ctx, clinic); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	s.cache.Delete(clinicCacheKey)
	return clinic, nil
}

// ValidateScheduleRequest checks the schedule configuration as a unit:
// a known timezone, a bounded slot duration, exactly one entry per weekday
// and well-formed times throughout.
func ValidateScheduleRequest(req *model.UpdateScheduleRequest) error {
	if req.Timezone != "" {
		if _, err := schedule.Location(req.Timezone); err != nil {
			return err
		}
	}

	if req.SlotDurationMinutes < model.MinSlotDuration || req.SlotDurationMinutes > model.MaxSlotDuration {
		return errors.Validation(fmt.Sprintf(
			"slot duration must be between %d and %d minutes",
			model.MinSlotDuration, model.MaxSlotDuration,
		))
	}

	seen := make(map[string]bool, len(model.WeekdayCodes))
	for _, entry := range req.Weekly {
		valid := false
		for _, code := range model.WeekdayCodes {
			if entry.Day == code {
				valid = true
				break
			}
		}
		if !valid {
			return errors.Validation(fmt.Sprintf("unknown weekday code %q", entry.Day))
		}
		if seen[entry.Day] {
			return errors.Validation(fmt.Sprintf("duplicate weekday entry %q", entry.Day))
		}
		seen[entry.Day] = true

		if entry.Enabled {
			if err := validateWindow(entry.From, entry.To); err != nil {
				return err
			}
		}
	}
	if len(seen) != len(model.WeekdayCodes) {
		return errors.Validation("weekly schedule must contain exactly one entry per weekday")
	}

	seenDates := make(map[string]bool, len(req.Exceptions))
	for _, ex := range req.Exceptions {
		if _, err := time.Parse(time.DateOnly, ex.Date); err != nil {
			return errors.Validation(fmt.Sprintf("invalid exception date %q", ex.Date))
		}
		if seenDates[ex.Date] {
			return errors.Validation(fmt.Sprintf("duplicate exception for date %q", ex.Date))
		}
		seenDates[ex.Date] = true
		switch ex.Type {
		case model.ExceptionClosed:
		case model.ExceptionCustom:
			if err := validateWindow(ex.From, ex.To); err != nil {
				return err
			}
		default:
			return errors.Validation(fmt.Sprintf("unknown exception type %q", ex.Type))
		}
	}
	return nil
}

func validateWindow(from, to string) error {
	fromMins, err := schedule.MinutesOfDay(from)
	if err != nil {
		return errors.Validation(fmt.Sprintf("invalid time %q", from))
	}
	toMins, err := schedule.MinutesOfDay(to)
	if err != nil {
		return errors.Validation(fmt.Sprintf("invalid time %q", to))
	}
	if fromMins == toMins {
		return errors.Validation("working hours window cannot be empty")
	}
	return nil
}
