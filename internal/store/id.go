package store

import "github.com/google/uuid"

// NewSessionID generates an opaque session identifier. Session ids
// otherwise originate from the host (the assistant process), but tests and
// local tooling need to mint one without a host attached.
func NewSessionID() string {
	return uuid.New().String()
}
