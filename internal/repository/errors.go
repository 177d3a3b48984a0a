// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// the current state of a record. Handlers should translate this into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrBidNotFound indicates that a bid was not located in the DB.
var ErrBidNotFound = errors.New("bid not found")

// ErrRetailBidNotFound indicates that a retail bid was not located in the DB.
var ErrRetailBidNotFound = errors.New("retail bid not found")

// ErrPaymentNotFound indicates that a bid payment was not located in the DB.
var ErrPaymentNotFound = errors.New("bid payment not found")
