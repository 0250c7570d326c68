package video

import "github.com/google/uuid"

// UUIDSource produces frame UUIDs.
type UUIDSource interface {
	NewUUID() uuid.UUID
}

// UUIDv7Source generates time-sortable UUIDv7 values.
// It is stateless and safe for concurrent use.
type UUIDv7Source struct{}

// NewUUID panics if the system random source fails.
func (UUIDv7Source) NewUUID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
