package database

import (
	"errors"
)

var (
	// ErrNotConnected is returned when the adapter has no open connection.
	ErrNotConnected = errors.New("database not connected")

	// ErrUniqueViolation is returned when a unique constraint fails.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails.
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint fails.
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// QueryError wraps a driver error with the statement that caused it.
type QueryError struct {
	Statement string
	// Kind is one of the violation sentinels, or nil when the driver error
	// has no portable meaning.
	Kind error
	Err  error
}

func (e *QueryError) Error() string {
	if e.Kind != nil {
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap exposes both the violation sentinel and the driver error.
func (e *QueryError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// Translator maps a driver error to one of the violation sentinels.
type Translator func(err error) error

// Wrap turns err into a *QueryError for stmt. nil stays nil.
func Wrap(stmt string, err error, translate Translator) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	var kind error
	if translate != nil {
		kind = translate(err)
	}
	return &QueryError{Statement: stmt, Kind: kind, Err: err}
}
