package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "crm-gateway/internal/common/errors"
)

// InvalidJSONDetails is the detail message for bodies that are not a JSON object.
const InvalidJSONDetails = "Request must contain valid JSON data"

// JSONSchema defines the structure of a request document.
type JSONSchema struct {
	Type          string              `json:"type"`
	Properties    map[string]Property `json:"properties,omitempty"`
	Required      []string            `json:"required,omitempty"`
	MinProperties *int                `json:"minProperties,omitempty"`
}

type Property struct {
	Type      interface{} `json:"type,omitempty"`
	Minimum   *float64    `json:"minimum,omitempty"`
	Maximum   *float64    `json:"maximum,omitempty"`
	Pattern   *string     `json:"pattern,omitempty"`
	MinLength *int        `json:"minLength,omitempty"`
	MaxLength *int        `json:"maxLength,omitempty"`
	Items     *Property   `json:"items,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// envelopeSchema accepts any non-empty JSON object.
var envelopeSchema = JSONSchema{
	Type:          "object",
	MinProperties: intPtr(1),
}

// ValidateDocument checks doc against schema.
func ValidateDocument(doc interface{}, schema JSONSchema) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// DecodeObject parses a request body that must be a non-empty JSON object.
func DecodeObject(raw []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, apperrors.NewInvalidRequestFormatError(InvalidJSONDetails)
	}

	var doc interface{}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, apperrors.NewInvalidRequestFormatError(InvalidJSONDetails)
	}

	result, err := ValidateDocument(doc, envelopeSchema)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidRequestFormatError(InvalidJSONDetails)
	}

	return doc.(map[string]interface{}), nil
}

// Merge copies schema violations into errs, keyed by the top-level field.
func (vr *ValidationResult) Merge(errs Errors, msg func(field string) string) {
	for _, e := range vr.Errors {
		field := e.Field
		if i := strings.IndexAny(field, ".["); i > 0 {
			field = field[:i]
		}
		errs.Add(field, msg(field))
	}
}

func intPtr(i int) *int {
	return &i
}
