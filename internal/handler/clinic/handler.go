package clinic

import (
	stderrors "errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinexa/booking-api/internal/middleware"
	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/repository"
	"github.com/clinexa/booking-api/internal/service/clinic"
	"github.com/clinexa/booking-api/pkg/errors"
	"github.com/clinexa/booking-api/pkg/httputil"
)

type Handler struct {
	service    *clinic.Service
	doctorRepo repository.DoctorRepository
}

func NewHandler(service *clinic.Service, doctorRepo repository.DoctorRepository) *Handler {
	return &Handler{service: service, doctorRepo: doctorRepo}
}

// RegisterPublicRoutes exposes the clinic profile to unauthenticated
// clients; the booking page needs it before login.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/clinic", h.GetClinic)
	r.GET("/clinic/schedule", h.GetSchedule)
}

// RegisterStaffRoutes wires the management endpoints. The caller applies
// the role guard.
func (h *Handler) RegisterStaffRoutes(r *gin.RouterGroup) {
	r.PUT("/clinic", h.UpsertClinic)
	r.PUT("/clinic/schedule", h.UpdateSchedule)
}

func (h *Handler) GetClinic(c *gin.Context) {
	clinic, err := h.service.GetPrimaryClinic(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinic)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	clinic, err := h.service.GetPrimaryClinic(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.ScheduleResponse{
		Timezone:            clinic.Timezone,
		SlotDurationMinutes: clinic.SlotDurationMinutes,
		Weekly:              clinic.Weekly,
		Exceptions:          clinic.Exceptions,
	})
}

func (h *Handler) UpsertClinic(c *gin.Context) {
	doctorID, err := h.resolveDoctorID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.UpsertClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.ValidationWrap("invalid request body", err))
		return
	}

	clinic, err := h.service.UpsertClinic(c.Request.Context(), doctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinic)
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	doctorID, err := h.resolveDoctorID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.ValidationWrap("invalid request body", err))
		return
	}

	clinic, err := h.service.UpdateSchedule(c.Request.Context(), doctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinic)
}

// resolveDoctorID maps the caller to the doctor whose clinic is managed:
// doctors manage their own, admins manage the primary doctor's.
func (h *Handler) resolveDoctorID(c *gin.Context) (uuid.UUID, error) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return uuid.Nil, errors.Forbidden("authentication required")
	}

	ctx := c.Request.Context()
	if actor.Role == model.RoleDoctor {
		doctor, err := h.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return uuid.Nil, errors.NotFound("doctor profile not found")
			}
			return uuid.Nil, fmt.Errorf("failed to get doctor: %w", err)
		}
		return doctor.ID, nil
	}

	doctor, err := h.doctorRepo.GetPrimary(ctx)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, errors.NotFound("no doctor is configured")
		}
		return uuid.Nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return doctor.ID, nil
}
