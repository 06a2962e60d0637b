package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/infrastructure/http/v1/dto"
	"visualeyes/pkg/logger"
)

// ErrorHandler middleware transforms errors into the uniform response
// envelope. Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			c.JSON(appErr.HTTPStatus, dto.Envelope{
				Success: false,
				Error: &dto.ErrorBody{
					Code:      appErr.Code,
					Message:   appErr.Message,
					Details:   appErr.Details,
					Timestamp: time.Now().UTC(),
				},
			})
			return
		}

		// Unknown error - log and return generic message
		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)

		c.JSON(http.StatusInternalServerError, dto.Envelope{
			Success: false,
			Error: &dto.ErrorBody{
				Code:    apperror.CodeInternal,
				Message: "Internal server error",
				Details: map[string]any{
					"request_id": c.GetString("request_id"),
				},
				Timestamp: time.Now().UTC(),
			},
		})
	}
}
