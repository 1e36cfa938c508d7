package utils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	if v, ok := c.Get("trace_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// HandleServiceError maps domain sentinel errors onto HTTP responses.
// Conflict-style outcomes (insufficient balance, already paid, not yet
// expired) are structured results the client branches on, not 500s.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrGalleryNotFound),
		errors.Is(err, ErrPlanNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		RespondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrUnpaidTransactionExists),
		errors.Is(err, ErrGalleryNotExpired),
		errors.Is(err, ErrInvalidTransition):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSelfReferral),
		errors.Is(err, ErrDiscountNotEligible),
		errors.Is(err, ErrInvalidPage),
		errors.Is(err, ErrInvalidPageSize):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDatabaseError):
		log.Printf("Database error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		log.Printf("Unknown error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
