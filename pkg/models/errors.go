package models

import (
	"errors"
	"fmt"
)

// ErrInputNotFound is returned when a source file or schema file does not exist
var ErrInputNotFound = errors.New("input not found")

// SchemaValidationError is returned when a schema entry lacks fields required by its type
type SchemaValidationError struct {
	Column string
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("schema column %q: %s %s", e.Column, e.Field, e.Reason)
}

// RangeError is returned when numeric bounds are given in reversed order
type RangeError struct {
	Column string
	Min    float64
	Max    float64
}

func (e *RangeError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("invalid range: min %v > max %v", e.Min, e.Max)
	}
	return fmt.Sprintf("column %q: invalid range: min %v > max %v", e.Column, e.Min, e.Max)
}
