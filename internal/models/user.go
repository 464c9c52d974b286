package models

import "time"

// User is a gateway account. Username is unique ignoring case and stored as entered.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type RegisterRequest struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LoginRequest struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `mapstructure:"current_password"`
	NewPassword     string `mapstructure:"new_password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
