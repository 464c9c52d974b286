package validators

import (
	"math"

	"crm-gateway/internal/common/validation"
)

// Deal validates a create_deal payload.
func Deal(data map[string]interface{}) validation.Errors {
	return validation.New(data).
		Required("dealname", "amount", "dealstage", "email").
		Length("dealname", 3, 5000).
		IsNumber("amount").
		Range("amount", validation.Float(0), nil).
		Length("dealstage", 3, 5000).
		Email("email").
		Length("pipeline", 0, 255).
		Custom("contact_id", isIdentifier, "contact_id must be a string or a whole number").
		Errors()
}

// isIdentifier accepts CRM record ids sent either as strings or as whole JSON numbers.
func isIdentifier(v interface{}) bool {
	switch id := v.(type) {
	case string:
		return id != ""
	case float64:
		return id >= 0 && id == math.Trunc(id)
	default:
		return false
	}
}
