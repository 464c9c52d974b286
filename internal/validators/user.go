package validators

import (
	"regexp"
	"unicode"

	"crm-gateway/internal/common/validation"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 72
	// bcrypt rejects passwords longer than 72 bytes.
	passwordMaxBytes = 72

	usernameMinLength = 2
	usernameMaxLength = 80

	passwordComplexityMessage = "Password must contain at least one uppercase letter, one lowercase letter, and one digit"
	usernamePatternMessage    = "Username may only contain letters, digits, '.', '_' and '-'"
	passwordBytesMessage      = "Password must be no more than 72 bytes"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Registration validates a register payload.
func Registration(data map[string]interface{}) validation.Errors {
	v := validation.New(data).
		Required("username", "password").
		Label("username", "Username").
		Length("username", usernameMinLength, usernameMaxLength).
		Pattern("username", usernamePattern, usernamePatternMessage)
	return password(v, "password").Errors()
}

// Login only checks presence; credential errors are reported by the auth service.
func Login(data map[string]interface{}) validation.Errors {
	return validation.New(data).
		Required("username", "password").
		Type("username", "string").
		Type("password", "string").
		Errors()
}

// PasswordChange validates a password update payload.
func PasswordChange(data map[string]interface{}) validation.Errors {
	v := validation.New(data).
		Required("current_password", "new_password").
		Type("current_password", "string")
	return password(v, "new_password").Errors()
}

func password(v *validation.Validator, field string) *validation.Validator {
	return v.
		Label(field, "Password").
		Length(field, passwordMinLength, passwordMaxLength).
		Custom(field, fitsBcrypt, passwordBytesMessage).
		Custom(field, isComplexPassword, passwordComplexityMessage)
}

func fitsBcrypt(v interface{}) bool {
	s, ok := v.(string)
	return ok && len(s) <= passwordMaxBytes
}

func isComplexPassword(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
