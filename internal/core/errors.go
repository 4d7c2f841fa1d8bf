package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fail-fast tier. Wrapped errors keep the underlying
// cause, so callers can use errors.Is for the kind and still log the detail.
var (
	// ErrFileNotFound is returned when the input path does not exist.
	ErrFileNotFound = errors.New("input file not found")

	// ErrMalformedInput is returned when the input cannot be parsed as CSV.
	ErrMalformedInput = errors.New("invalid csv")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrParse is returned when a created_at value matches no known layout.
	ErrParse = errors.New("invalid timestamp")

	// ErrFileTooLarge is returned when an uploaded file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile is returned when a request carries no CSV.
	ErrNoFile = errors.New("no file provided")
)

// ParseError describes a cell that could not be parsed.
type ParseError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: row %d column %q value %q: %v", ErrParse, e.Row, e.Column, e.Value, e.Err)
}

// Is makes errors.Is(err, ErrParse) true for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
