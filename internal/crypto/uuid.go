package crypto

import (
	"github.com/google/uuid"
)

// NewUUIDv7 generates a time-ordered UUID v7, used for knowledgebase
// document identifiers so insertion order survives in the primary key.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
