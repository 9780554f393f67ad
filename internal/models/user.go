package models

import "time"

// User is a credential record held by the identity adapter.
// Profiles (clinic/patient data) live on Party and are joined by email.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for sign-in.
	Email string

	DisplayName string

	// PasswordHash is a bcrypt hash. Never serialized to clients.
	PasswordHash string

	CreatedAt int64
	UpdatedAt int64
}

// NewUser builds a User with creation timestamps set. The ID is assigned by storage.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
