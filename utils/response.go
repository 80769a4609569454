package utils

import (
	"errors"
	"net/http"

	"civicsync-api/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// OK writes {success: true, data} plus any extra top-level fields.
func OK(c *gin.Context, status int, data any, extra gin.H) {
	body := gin.H{"success": true, "data": data}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// Message writes {success: true, message}.
func Message(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

// Fail writes {success: false, message}.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindDependency:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// RespondError writes err in the response envelope. Errors without a kind
// are logged and reported as a generic 500.
func RespondError(c *gin.Context, log zerolog.Logger, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("request failed")
		Fail(c, http.StatusInternalServerError, "Something went wrong")
		return
	}

	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("dependency failure")
	}
	body := gin.H{"success": false, "message": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	c.AbortWithStatusJSON(status, body)
}
