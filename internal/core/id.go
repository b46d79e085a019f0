package core

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7 string, used for builds, workspaces,
// templates and versions alike.
func NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
