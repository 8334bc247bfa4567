// Package workflow implements the subscription approval and payment
// state machine. It is isolated from HTTP and storage: the engine works
// on model entities and talks to the outside world through the ports in
// ports.go, so every transition is unit-testable with in-memory fakes.
package workflow

import "errors"

// ErrNotFound is returned when the referenced subscription does not
// exist. Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("subscription not found")

// ErrNoHOD is returned when a request or renewal targets a department
// with no user flagged as its HOD. The operation is rejected before any
// state is mutated.
var ErrNoHOD = errors.New("no HOD resolvable for department")

// ErrAccessDenied is returned when the acting user's role or sub-role
// does not match the actor required by a transition. Handlers translate
// it into HTTP 403.
var ErrAccessDenied = errors.New("access denied")

// ErrInvalidTransition is returned when a transition is attempted from a
// status it is not reachable from (e.g. marking a Pending subscription
// as paid). Handlers translate it into HTTP 409.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrVersionConflict is returned by the store when a conditional update
// loses against a concurrent write. The caller should reload and retry.
var ErrVersionConflict = errors.New("subscription was modified concurrently")

// ErrValidation wraps input problems detected before any mutation, such
// as a malformed amount or an unknown currency. Use errors.Is to test
// for it; the wrapped message carries the specifics.
var ErrValidation = errors.New("validation failed")
