package store

import "errors"

// Sentinel errors returned by store implementations. Services translate
// these into domain errors at the service boundary.
var (
	// ErrNotFound is the generic missing-row error.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a uniqueness violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrTagNotFound signals an unknown tag ID or UID.
	ErrTagNotFound = errors.New("tag not found")
	// ErrPackNotFound signals an unknown pack ID or code.
	ErrPackNotFound = errors.New("pack not found")
	// ErrSessionNotFound signals an unknown bulk import session.
	ErrSessionNotFound = errors.New("bulk import session not found")
	// ErrUserNotFound signals an unknown user ID or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInventoryItemNotFound signals an unknown inventory item.
	ErrInventoryItemNotFound = errors.New("inventory item not found")

	// ErrActiveSessionExists signals the per-operator unique-active-session
	// invariant would be violated.
	ErrActiveSessionExists = errors.New("operator already has an active session")
)
