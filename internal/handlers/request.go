package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/common/metrics"
	"crm-gateway/internal/common/validation"
	"crm-gateway/internal/models"
)

// validateFunc checks a decoded payload and returns the per-field failures.
type validateFunc func(map[string]interface{}) validation.Errors

// bindPayload reads a JSON object body, validates it and decodes it into out.
// On failure the error response has been written and false is returned.
func bindPayload(c *gin.Context, errs *apperrors.ErrorHandler, entity string, validate validateFunc, out interface{}) bool {
	raw, err := c.GetRawData()
	if err != nil {
		errs.Respond(c, apperrors.NewInvalidRequestFormatError(validation.InvalidJSONDetails))
		return false
	}

	payload, err := validation.DecodeObject(raw)
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(entity).Inc()
		errs.Respond(c, err)
		return false
	}

	if err := validate(payload).Err(); err != nil {
		metrics.ValidationFailures.WithLabelValues(entity).Inc()
		errs.Respond(c, err)
		return false
	}

	if err := models.Decode(payload, out); err != nil {
		errs.Respond(c, apperrors.NewInvalidRequestFormatError(err.Error()))
		return false
	}
	return true
}
