package appointment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinexa/booking-api/internal/middleware"
	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/internal/service/appointment"
	"github.com/clinexa/booking-api/pkg/errors"
	"github.com/clinexa/booking-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes exposes slot availability; the booking page shows it
// before login.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/slots", h.GetAvailableSlots)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	appointments.POST("", h.Create)
	appointments.GET("", h.List)
	appointments.GET("/mine", h.ListMine)
	appointments.GET("/doctor", h.ListForDoctor)
	appointments.GET("/:id", h.Get)
	appointments.PATCH("/:id/confirm", h.Confirm)
	appointments.PATCH("/:id/complete", h.Complete)
	appointments.PATCH("/:id/cancel", h.Cancel)
	appointments.PATCH("/:id/reschedule", h.Reschedule)
}

// GetAvailableSlots returns the slot grid for a clinic-local date, with
// slots held by existing appointments marked booked.
func (h *Handler) GetAvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		httputil.RespondWithError(c, errors.Validation("date query parameter is required"))
		return
	}

	resp, err := h.service.GetAvailableSlots(c.Request.Context(), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.ValidationWrap("invalid request body", err))
		return
	}

	apt, err := h.service.Book(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return
	}

	filters := &model.AppointmentFilters{
		Status: model.AppointmentStatus(c.Query("status")),
		Date:   c.Query("date"),
	}

	apts, err := h.service.ListForActor(c.Request.Context(), actor, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apts)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return
	}

	apts, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apts)
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return
	}

	apts, err := h.service.ListForDoctor(c.Request.Context(), actor, c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apts)
}

func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	apt, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Confirm(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	apt, err := h.service.Confirm(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Complete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	apt, err := h.service.Complete(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	// The body is optional; cancelling without a reason is fine.
	var req model.CancelAppointmentRequest
	_ = c.ShouldBindJSON(&req)

	apt, err := h.service.Cancel(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Reschedule(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.ValidationWrap("invalid request body", err))
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) actorAndID(c *gin.Context) (*model.Actor, uuid.UUID, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Forbidden("authentication required"))
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment id"))
		return nil, uuid.Nil, false
	}
	return actor, id, true
}
