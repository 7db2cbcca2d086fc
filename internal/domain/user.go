package domain

import "time"

// Role tags a user as client, engineer or admin. Services and handlers
// dispatch on this value; it is never mutated after registration.
type Role string

const (
	RoleClient   Role = "client"
	RoleEngineer Role = "engineer"
	RoleAdmin    Role = "admin"
)

// Known reports whether the role is one of the three recognized tags.
func (r Role) Known() bool {
	switch r {
	case RoleClient, RoleEngineer, RoleAdmin:
		return true
	}
	return false
}

// User is the single identity model; Role decides which surfaces apply.
type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Role              Role
	Phone             *string
	Department        *string
	ProfilePictureKey *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EngineerProfile carries engineer-only capacity attributes, one per
// engineer user.
type EngineerProfile struct {
	ID                  string
	UserID              string
	Specialization      string
	YearsOfExperience   int
	IsAvailable         bool
	CurrentTicketsCount int
}
