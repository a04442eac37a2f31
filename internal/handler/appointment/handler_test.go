package appointment

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validator.RegisterCustom(); err != nil {
		panic(err)
	}
}

// newTestRouter wires the handler without a backing service. The cases below
// fail request validation before the service is ever reached.
func newTestRouter(actor *model.Actor) *gin.Engine {
	h := NewHandler(nil)
	r := gin.New()
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Set("actor", actor)
			c.Next()
		})
	}
	h.RegisterPublicRoutes(&r.RouterGroup)
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

func TestGetAvailableSlots_RequiresDate(t *testing.T) {
	r := newTestRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slots", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "date query parameter is required")
}

func TestCreate_RequiresAuthentication(t *testing.T) {
	r := newTestRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments",
		strings.NewReader(`{"date":"2026-01-12","time":"10:00"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "authentication required")
}

func TestCreate_RejectsMalformedBody(t *testing.T) {
	actor := &model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	r := newTestRouter(actor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments",
		strings.NewReader(`{"date":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreate_RejectsUnpaddedSlotTime(t *testing.T) {
	actor := &model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	r := newTestRouter(actor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments",
		strings.NewReader(`{"date":"2026-01-12","time":"9:00"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestLifecycleRoutes_RejectInvalidID(t *testing.T) {
	actor := &model.Actor{UserID: uuid.New(), Role: model.RoleDoctor}
	r := newTestRouter(actor)

	for _, action := range []string{"confirm", "complete", "cancel", "reschedule"} {
		t.Run(action, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/appointments/not-a-uuid/"+action, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid appointment id")
		})
	}
}
