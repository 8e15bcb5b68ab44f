package state

import "github.com/google/uuid"

// NewSiteID returns a fresh author identity for a session.
func NewSiteID() string {
	return uuid.NewString()
}

// NewCommandID returns an id for a captured StrokeCommand.
func NewCommandID() string {
	return uuid.NewString()
}
