package apiutil

import (
	"net/http"

	"github.com/Aidin1998/todos/common/errors"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response structure for all APIs
//
// Example:
//
//	{
//	  "error": "Invalid",
//	  "message": "text is required",
//	  "details": [{"kind": "required", "field": "text"}]
//	}
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteErrorResponse writes a consistent error response to the client
func WriteErrorResponse(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// WriteError writes err as an ErrorResponse with the given status. Kinded
// errors contribute their kind, message and field details.
func WriteError(c *gin.Context, status int, err error) {
	var e *errors.Error
	if errors.As(err, &e) {
		var details interface{}
		if len(e.Fields) > 0 {
			details = e.Fields
		}
		message := e.Message
		if message == "" {
			message = err.Error()
		}
		WriteErrorResponse(c, status, e.Kind, message, details)
		return
	}
	WriteErrorResponse(c, status, http.StatusText(status), err.Error(), nil)
}
