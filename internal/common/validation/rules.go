package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"unicode/utf8"

	apperrors "crm-gateway/internal/common/errors"
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
	digitsPattern = regexp.MustCompile(`^\+?[0-9]+$`)
)

// Errors maps a field name to the first message recorded for it.
type Errors map[string]string

// Add records msg for field unless the field already failed.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = msg
}

func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Err converts the result into a validation error, or nil when nothing failed.
func (e Errors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	fields := make(map[string]string, len(e))
	for k, v := range e {
		fields[k] = v
	}
	return apperrors.NewValidationError(fields)
}

// Validator applies field rules to a decoded JSON payload.
// Every rule except Required skips fields that are absent from the payload.
type Validator struct {
	data   map[string]interface{}
	errs   Errors
	labels map[string]string
}

func New(data map[string]interface{}) *Validator {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Validator{data: data, errs: Errors{}, labels: map[string]string{}}
}

// Label sets the name used for field in Length, Type and string-shape messages.
func (v *Validator) Label(field, name string) *Validator {
	v.labels[field] = name
	return v
}

func (v *Validator) name(field string) string {
	if label, ok := v.labels[field]; ok {
		return label
	}
	return field
}

// Errors returns the accumulated result.
func (v *Validator) Errors() Errors {
	return v.errs
}

// Err is shorthand for v.Errors().Err().
func (v *Validator) Err() error {
	return v.errs.Err()
}

// lookup returns the value of a present, non-null field.
func (v *Validator) lookup(field string) (interface{}, bool) {
	val, exists := v.data[field]
	if !exists || val == nil {
		return nil, false
	}
	return val, true
}

// Required fails fields that are absent, null or the empty string. All fields are checked.
func (v *Validator) Required(fields ...string) *Validator {
	for _, field := range fields {
		val, exists := v.data[field]
		if !exists || val == nil {
			v.errs.Add(field, fmt.Sprintf("%s is required", field))
			continue
		}
		if s, ok := val.(string); ok && s == "" {
			v.errs.Add(field, fmt.Sprintf("%s is required", field))
		}
	}
	return v
}

// Length bounds the character count of a string field. A zero bound is not enforced.
func (v *Validator) Length(field string, min, max int) *Validator {
	val, ok := v.lookup(field)
	if !ok {
		return v
	}
	s, ok := val.(string)
	if !ok {
		v.errs.Add(field, fmt.Sprintf("%s must be a string", v.name(field)))
		return v
	}
	n := utf8.RuneCountInString(s)
	if min > 0 && n < min {
		v.errs.Add(field, fmt.Sprintf("%s must be at least %d characters", v.name(field), min))
		return v
	}
	if max > 0 && n > max {
		v.errs.Add(field, fmt.Sprintf("%s must be no more than %d characters", v.name(field), max))
	}
	return v
}

// Type checks the JSON kind of a field: string, number, integer, boolean, object or array.
func (v *Validator) Type(field, kind string) *Validator {
	val, ok := v.lookup(field)
	if !ok {
		return v
	}
	if !isKind(val, kind) {
		v.errs.Add(field, fmt.Sprintf("%s must be %s", v.name(field), articleFor(kind)))
	}
	return v
}

func (v *Validator) IsNumber(field string) *Validator {
	val, exists := v.data[field]
	if !exists {
		return v
	}
	if _, ok := toFloat(val); !ok {
		v.errs.Add(field, fmt.Sprintf("%s must be a number.", field))
	}
	return v
}

// Range bounds a numeric field. Nil bounds are not enforced.
func (v *Validator) Range(field string, min, max *float64) *Validator {
	val, exists := v.data[field]
	if !exists {
		return v
	}
	n, ok := toFloat(val)
	if !ok {
		v.errs.Add(field, fmt.Sprintf("%s must be a number.", field))
		return v
	}
	if min != nil && n < *min {
		v.errs.Add(field, fmt.Sprintf("%s must be at least %s", field, formatNumber(*min)))
		return v
	}
	if max != nil && n > *max {
		v.errs.Add(field, fmt.Sprintf("%s must be no more than %s", field, formatNumber(*max)))
	}
	return v
}

// Email checks the address format of a non-empty string field.
func (v *Validator) Email(field string) *Validator {
	val, ok := v.lookup(field)
	if !ok {
		return v
	}
	s, isString := val.(string)
	if !isString {
		v.errs.Add(field, fmt.Sprintf("%s must be a string", v.name(field)))
		return v
	}
	if s != "" && !ValidateEmail(s) {
		v.errs.Add(field, "Invalid email format.")
	}
	return v
}

// Digits requires a string of digits with an optional leading '+'.
func (v *Validator) Digits(field string) *Validator {
	val, ok := v.lookup(field)
	if !ok {
		return v
	}
	s, isString := val.(string)
	if !isString {
		v.errs.Add(field, fmt.Sprintf("%s must be a string", v.name(field)))
		return v
	}
	if !digitsPattern.MatchString(s) {
		v.errs.Add(field, fmt.Sprintf("%s must contain only digits", v.name(field)))
	}
	return v
}

// Pattern records msg when a string field does not match re.
func (v *Validator) Pattern(field string, re *regexp.Regexp, msg string) *Validator {
	val, ok := v.lookup(field)
	if !ok {
		return v
	}
	s, isString := val.(string)
	if !isString {
		v.errs.Add(field, fmt.Sprintf("%s must be a string", v.name(field)))
		return v
	}
	if !re.MatchString(s) {
		v.errs.Add(field, msg)
	}
	return v
}

// Custom records msg when fn rejects the value of a present field.
func (v *Validator) Custom(field string, fn func(interface{}) bool, msg string) *Validator {
	val, ok := v.lookup(field)
	if !ok {
		return v
	}
	if !fn(val) {
		v.errs.Add(field, msg)
	}
	return v
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Float returns a pointer for Range bounds.
func Float(f float64) *float64 {
	return &f
}

func toFloat(val interface{}) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isKind(val interface{}, kind string) bool {
	switch kind {
	case "string":
		_, ok := val.(string)
		return ok
	case "number":
		_, ok := toFloat(val)
		return ok
	case "integer":
		f, ok := toFloat(val)
		return ok && f == math.Trunc(f)
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "object":
		_, ok := val.(map[string]interface{})
		return ok
	case "array":
		_, ok := val.([]interface{})
		return ok
	default:
		return false
	}
}

func articleFor(kind string) string {
	switch kind {
	case "integer", "array", "object":
		return "an " + kind
	default:
		return "a " + kind
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
