package common

import (
	"github.com/google/uuid"
)

// ID is a UUID string identifying a stored record
type ID string

// NewID generates a new random ID
func NewID() ID {
	return ID(uuid.New().String())
}

// IsValid checks if the ID is a valid UUID
func (id ID) IsValid() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

func (id ID) String() string {
	return string(id)
}
