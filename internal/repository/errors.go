// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios: uniqueness violations
// on registration map to HTTP 409, ErrNotFound maps to 404, and
// ErrInvalidGrade is a hard validation error (400) because an unresolvable
// grade name means the proposal cannot be stored at all.
package repository

import "errors"

// ErrUsernameExists is returned when registration collides with an existing
// login name.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when registration collides with an existing
// email address.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a referenced entity is absent. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidGrade is returned when a human-readable grade string cannot be
// resolved to a grade row.
var ErrInvalidGrade = errors.New("invalid grade")
