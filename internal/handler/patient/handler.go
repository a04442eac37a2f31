package patient

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinexa/booking-api/internal/middleware"
	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/service/notification"
	"github.com/clinexa/booking-api/internal/service/patient"
	"github.com/clinexa/booking-api/pkg/errors"
	"github.com/clinexa/booking-api/pkg/httputil"
)

type Handler struct {
	service  *patient.Service
	notifSvc *notification.Service
}

func NewHandler(service *patient.Service, notifSvc *notification.Service) *Handler {
	return &Handler{service: service, notifSvc: notifSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/patients")
	group.GET("/me", h.GetProfile)
	group.PATCH("/me", h.UpdateProfile)

	r.GET("/notifications", h.ListNotifications)
	r.PATCH("/notifications/:id/read", h.MarkNotificationRead)
}

func (h *Handler) GetProfile(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), actor.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.ValidationWrap("invalid request body", err))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.notifSvc.List(c.Request.Context(), actor.UserID, limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notifications)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid notification id"))
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"read": true})
}
