package models

import "time"

// Role values form a closed set; anything else is rejected at registration.
const (
	RoleStudent = "student"
	RoleCook    = "cook"
	RoleAdmin   = "admin"
)

func IsValidRole(role string) bool {
	return role == RoleStudent || role == RoleCook || role == RoleAdmin
}

type User struct {
	ID        int       `json:"id" example:"1"`                 // User ID
	Username  string    `json:"username" example:"ivan.petrov"` // Unique login name
	Role      string    `json:"role" example:"student"`         // student, cook or admin
	Allergies string    `json:"allergies" example:"peanuts"`    // Free-text allergy notes
	CreatedAt time.Time `json:"created_at"`
}
