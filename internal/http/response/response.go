package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/progression-backend/internal/platform/apierr"
)

var (
	errInternal    = errors.New("internal error")
	errUnavailable = errors.New("temporarily unavailable")
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message:   msg,
			Code:      code,
			Retryable: status == http.StatusServiceUnavailable,
		},
	})
}

// RespondAggregateError picks the status from the error's aggregate code.
// 5xx bodies carry a fixed message; the cause is attached to the gin context
// for the request logger.
func RespondAggregateError(c *gin.Context, err error) {
	ae := apierr.FromAggregate(err)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, "internal", nil)
		return
	}
	switch {
	case ae.Status == http.StatusServiceUnavailable:
		_ = c.Error(err)
		RespondError(c, ae.Status, ae.Code, errUnavailable)
	case ae.Status >= http.StatusInternalServerError:
		_ = c.Error(err)
		RespondError(c, ae.Status, ae.Code, errInternal)
	default:
		RespondError(c, ae.Status, ae.Code, err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

