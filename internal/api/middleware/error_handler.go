// Package middleware provides HTTP middleware for the stateflow API.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/pkg/logger"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Code        string                  `json:"code"`
	Message     string                  `json:"message"`
	Params      map[string]interface{} `json:"params,omitempty"`
	FieldErrors []apperrors.FieldError `json:"field_errors,omitempty"`
}

// ErrorHandler is a Gin middleware that provides centralized error handling.
// It captures errors added via c.Error() and returns a consistent JSON response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		// Check if it's an AppError with structured info
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			logger.Warn("Request error",
				zap.String("request_id", GetRequestID(c.Request.Context())),
				zap.String("code", appErr.Code),
				zap.String("message", appErr.Message),
				zap.Int("status", appErr.HTTPStatus),
				zap.Error(appErr.Err),
			)
			c.JSON(appErr.HTTPStatus, errorResponse(appErr))
			return
		}

		// Fallback: generic 500 error
		logger.Error("Unhandled request error",
			zap.String("request_id", GetRequestID(c.Request.Context())),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    apperrors.CodeInternal,
			Message: "An internal error occurred",
		})
	}
}

func errorResponse(appErr *apperrors.AppError) ErrorResponse {
	return ErrorResponse{
		Code:        appErr.Code,
		Message:     appErr.Message,
		Params:      appErr.Params,
		FieldErrors: appErr.FieldErrors,
	}
}

// abortWithError records err for ErrorHandler and stops the chain.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
