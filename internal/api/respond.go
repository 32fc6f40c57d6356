package api

import (
	"errors"
	"net/http"
	"strconv"

	"careshare-service/internal/apperr"
	"careshare-service/internal/service"
	"careshare-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// respond writes the success envelope merged with the resource fields
func respond(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError maps an error to its HTTP status and writes the failure envelope.
// Operation errors never expose their cause to the client.
func respondError(c *gin.Context, err error) {
	err = service.ValidationError(err)
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	message := "Internal server error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	if kind == apperr.KindOperation {
		util.Component("api").Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"code":    kind.String(),
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bindError reports a failed request bind. Field rule failures keep their
// message and malformed bodies become a generic validation error.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return service.ValidationError(err)
	}
	return apperr.Validation("Invalid request body")
}

// parseID reads a positive integer path parameter
func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid %s", name)
	}
	return id, nil
}
