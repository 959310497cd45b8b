package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sarops/incident-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps an application error to its HTTP status and writes the
// error envelope.
func RespondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrBadRequest, apperrors.ErrValidationFailed, apperrors.ErrInvalidTransition:
		status = http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrForbidden:
		status = http.StatusForbidden
	case apperrors.ErrConflict, apperrors.ErrAlreadyActive:
		status = http.StatusConflict
	case apperrors.ErrInvalidOrExpiredCode:
		// 404, not 403: callers must not distinguish "wrong" from "expired".
		status = http.StatusNotFound
	case apperrors.ErrCapacityExceeded:
		status = http.StatusConflict
	case apperrors.ErrSubmissionFailed:
		status = http.StatusBadGateway
	}

	c.JSON(status, NewErrorResponse(appErr.Message))
}
