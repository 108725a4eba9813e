package domain

import "time"

// User is the domain model for registered accounts.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
