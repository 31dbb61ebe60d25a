// Package idgen provides ID generation utilities for the application.
// It encapsulates the ID generation implementation so the strategy can change
// in one place.
package idgen

import (
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// NewID generates a new globally unique, sortable identifier.
// Returns a 20-character URL-safe string using xid format.
func NewID() string {
	return xid.New().String()
}

// NewSessionID generates the local identifier of a document session.
// The id is sortable by creation time so journal listings stay chronological.
func NewSessionID() string {
	return NewID()
}

// NewRequestID generates a correlation id sent as X-Request-ID on service calls.
func NewRequestID() string {
	return uuid.NewString()
}
