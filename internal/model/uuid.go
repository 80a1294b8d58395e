package model

import "github.com/google/uuid"

// GenerateID creates a new time-ordered unique identifier (UUIDv7).
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
