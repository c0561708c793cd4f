// Package errors provides custom error types for the kinsync reconciliation
// engine. These errors enable programmatic error checking with errors.Is and
// errors.As throughout the system.
//
// Note that "no match found", "score below threshold", and validation
// findings are ordinary outputs of the engine, represented as data in the
// result types — they are never errors.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the kinsync system.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAnchorNotFound indicates a configured anchor id is absent from its
	// graph. This is a hard precondition failure: the run aborts before any
	// comparison work begins.
	ErrAnchorNotFound = errors.New("anchor not found")

	// ErrMappingConflict indicates an attempt to add a mapping whose source
	// or destination id is already claimed.
	ErrMappingConflict = errors.New("mapping conflict")

	// ErrReadOnly indicates an attempt to modify a read-only record.
	ErrReadOnly = errors.New("read only")
)

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AnchorError reports an anchor id missing from its graph.
type AnchorError struct {
	Side string // "source" or "destination"
	ID   string
}

// Error implements the error interface.
func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor %s not present in %s graph", e.ID, e.Side)
}

// Is implements errors.Is support.
func (e *AnchorError) Is(target error) bool {
	return target == ErrAnchorNotFound || target == ErrNotFound
}

// NewAnchorError creates a new AnchorError.
func NewAnchorError(side, id string) *AnchorError {
	return &AnchorError{Side: side, ID: id}
}

// ValidationError represents a validation failure of input data or options.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// MappingConflictError reports an attempt to claim an already-mapped id.
type MappingConflictError struct {
	SourceID string
	DestID   string
	Existing string // the id already holding the slot
}

// Error implements the error interface.
func (e *MappingConflictError) Error() string {
	return fmt.Sprintf("mapping %s -> %s conflicts with existing mapping involving %s",
		e.SourceID, e.DestID, e.Existing)
}

// Is implements errors.Is support.
func (e *MappingConflictError) Is(target error) bool {
	return target == ErrMappingConflict
}

// NewMappingConflictError creates a new MappingConflictError.
func NewMappingConflictError(sourceID, destID, existing string) *MappingConflictError {
	return &MappingConflictError{SourceID: sourceID, DestID: destID, Existing: existing}
}

// ParseError represents an error when parsing data formats.
type ParseError struct {
	Format  string // "json", "yaml", "csv", "date"
	File    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError represents an error during I/O operations.
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// Helper functions for error checking.

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAnchorNotFound checks if an error is an anchor precondition failure.
func IsAnchorNotFound(err error) bool {
	return errors.Is(err, ErrAnchorNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMappingConflict checks if an error is a mapping conflict.
func IsMappingConflict(err error) bool {
	return errors.Is(err, ErrMappingConflict)
}

// Helper wrapping functions for common patterns.

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
