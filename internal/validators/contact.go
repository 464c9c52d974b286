package validators

import (
	"crm-gateway/internal/common/validation"
)

// Contact validates a create_contact payload.
func Contact(data map[string]interface{}) validation.Errors {
	return validation.New(data).
		Required("email", "firstname", "lastname", "phone").
		Length("email", 3, 80).
		Email("email").
		Length("firstname", 2, 80).
		Length("lastname", 2, 80).
		Label("phone", "Phone").
		Length("phone", 8, 13).
		Digits("phone").
		Errors()
}
