package storage

import "errors"

// Storage errors shared by the token store and the summary sinks.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a summary with the same ID was already appended.
	ErrDuplicateKey = errors.New("duplicate key: append-only sink does not allow rewrites")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSinkClosed is returned when appending to a sink after Close.
	ErrSinkClosed = errors.New("sink closed")
)
