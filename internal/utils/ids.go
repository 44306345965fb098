package utils

import "github.com/google/uuid"

// IsUUID reports whether s is a canonical UUID, the id format every store issues.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
