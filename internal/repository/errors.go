// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to act on a subscription assigned to someone else, while
// ErrConflict signals that an operation cannot proceed due to existing
// state (e.g. creating a department whose name is already taken).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate department name. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
