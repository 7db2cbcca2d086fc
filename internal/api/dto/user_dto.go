package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Username          string      `json:"username"`
	Email             string      `json:"email"`
	Password          string      `json:"password"`
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	Role              domain.Role `json:"role"`
	Phone             *string     `json:"phone"`
	Department        *string     `json:"department"`
	Specialization    string      `json:"specialization"`
	YearsOfExperience int         `json:"years_of_experience"`
}

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordChangeRequest payload.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public user representation.
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role"`
}

// EngineerResponse pairs an engineer with its profile attributes.
type EngineerResponse struct {
	UserResponse
	Specialization      string `json:"specialization,omitempty"`
	YearsOfExperience   int    `json:"years_of_experience,omitempty"`
	IsAvailable         bool   `json:"is_available"`
	CurrentTicketsCount int    `json:"current_tickets_count"`
}
