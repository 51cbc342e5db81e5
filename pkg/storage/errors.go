package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a transaction lost a race with a concurrent writer
// (an optimistic version check failed, or a row lock could not be acquired in time).
// The whole transaction had no effect and may be retried.
var ErrConflict = errors.New("concurrent modification")

// ErrDuplicate is returned when a record that must be unique already exists.
var ErrDuplicate = errors.New("record already exists")
