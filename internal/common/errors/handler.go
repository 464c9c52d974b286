package errors

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorHandler writes standardized JSON error responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Respond normalizes err, logs it and aborts the request with the mapped status and body.
func (h *ErrorHandler) Respond(c *gin.Context, err error) {
	stdErr := h.normalizeError(err)
	status := StatusForCode(stdErr.Code)

	h.logError(c, stdErr, status)

	c.AbortWithStatusJSON(status, ResponseBody(stdErr))
}

// ResponseBody renders the client-facing body of an error.
func ResponseBody(stdErr *StandardError) gin.H {
	switch stdErr.Code {
	case ErrCodeValidationFailed:
		details := stdErr.Fields
		if details == nil {
			details = map[string]string{}
		}
		return gin.H{"error": stdErr.Message, "details": details}
	case ErrCodeInvalidRequestFormat, ErrCodeBadRequest:
		return gin.H{"error": stdErr.Message, "details": stdErr.Details}
	case ErrCodeRemoteAPIError:
		return gin.H{
			"error":   stdErr.Message,
			"status":  stdErr.RemoteStatus,
			"details": remoteDetails(stdErr.RemoteBody),
		}
	case ErrCodeInternal, ErrCodeConfiguration:
		return gin.H{"error": "Internal server error"}
	default:
		body := gin.H{"error": stdErr.Message}
		if stdErr.Details != "" {
			body["details"] = stdErr.Details
		}
		return body
	}
}

// remoteDetails passes a JSON CRM error body through as structured data.
func remoteDetails(body string) interface{} {
	var parsed interface{}
	if body != "" && json.Unmarshal([]byte(body), &parsed) == nil {
		return parsed
	}
	return body
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	return AsStandardError(err)
}

func (h *ErrorHandler) logError(c *gin.Context, stdErr *StandardError, status int) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
		"retryable":     stdErr.Retryable,
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"method":        c.Request.Method,
		"path":          c.FullPath(),
	}
	if stdErr.RemoteStatus != 0 {
		fields["remoteStatus"] = stdErr.RemoteStatus
		fields["remoteBody"] = stdErr.RemoteBody
	}
	if len(stdErr.Fields) > 0 {
		fields["fields"] = stdErr.Fields
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields)
		return
	}
	h.logger.Warn("Request rejected", fields)
}
