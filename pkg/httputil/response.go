package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinexa/booking-api/pkg/errors"
)

// Response wraps all API responses.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error carries the machine-readable kind and the human-readable reason.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a 200 success response.
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 success response.
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps an application error to its HTTP status. Unknown
// errors are masked as a generic 500.
func RespondWithError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error: &Error{
				Kind:    string(errors.KindInternal),
				Message: "internal server error",
			},
		})
		return
	}

	c.JSON(appErr.StatusCode(), Response{
		Success: false,
		Error: &Error{
			Kind:    string(appErr.Kind),
			Message: appErr.Message,
		},
	})
}
