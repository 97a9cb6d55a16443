package model

import "errors"

// Common errors used across the application
var (
	// Object errors
	ErrObjectNotFound  = errors.New("object not found")
	ErrNotOwner        = errors.New("session does not own the object")
	ErrNotTransferable = errors.New("object type does not allow ownership transfer")

	// Snapshot errors
	ErrSnapshotAbsent = errors.New("no snapshot present")
)
