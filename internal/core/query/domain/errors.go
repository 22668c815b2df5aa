package domain

import "errors"

var (
	// ErrInvalidQuery is returned when a query is malformed.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnsupportedValue is returned when a Go value has no bindable representation.
	ErrUnsupportedValue = errors.New("unsupported value")
)
