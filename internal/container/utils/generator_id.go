package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID generates a random ID of 12 hex characters
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", "")[:12], nil
}
