package models

import "github.com/google/uuid"

// ensureID assigns a new UUID when the primary key is still empty.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
