package domain

import "errors"

// ErrInvalidSchema is returned for malformed schema changes.
var ErrInvalidSchema = errors.New("invalid schema")
