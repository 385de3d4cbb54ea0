package domain

import "errors"

var (
	// ErrNotFound indicates the referenced task or project does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a mutating call without an acting user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalid indicates malformed caller input.
	ErrInvalid = errors.New("invalid input")
)

// ErrConflict indicates a request that collides with one already in flight.
var ErrConflict = errors.New("conflict")
