package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrConnection is returned when Solr cannot be reached or answers with something other than JSON
	ErrConnection = errors.New("solr connection error")

	// ErrSolrQuery is returned when Solr reports an error for a request
	ErrSolrQuery = errors.New("solr query error")

	// ErrUnsupportedOperation is returned when a criterion names an operation with no formatter
	ErrUnsupportedOperation = errors.New("unsupported criterion operation")

	// ErrInvalidFacetQueryFormat is returned when a facet query key cannot be parsed
	ErrInvalidFacetQueryFormat = errors.New("invalid facet query format")

	// ErrMissingTransformation is returned when a facet value needs a transformation that is not registered
	ErrMissingTransformation = errors.New("no facet field transformation registered")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// ConnectionError represents a transport failure talking to Solr
type ConnectionError struct {
	URL     string
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("solr connection error for '%s': %s", e.URL, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("solr connection error for '%s': %s", e.URL, e.Err.Error())
	}
	return fmt.Sprintf("solr connection error for '%s'", e.URL)
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(url, message string, err error) *ConnectionError {
	return &ConnectionError{URL: url, Message: message, Err: err}
}

// SolrQueryError carries the message of an error object returned by Solr
type SolrQueryError struct {
	Message string
	Code    int
}

func (e *SolrQueryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("solr error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("solr error: %s", e.Message)
}

func (e *SolrQueryError) Is(target error) bool {
	return target == ErrSolrQuery
}

// NewSolrQueryError creates a new SolrQueryError
func NewSolrQueryError(message string, code ...int) *SolrQueryError {
	err := &SolrQueryError{Message: message}
	if len(code) > 0 {
		err.Code = code[0]
	}
	return err
}

// UnsupportedOperationError represents an unknown criterion operation
type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported criterion operation '%s'", e.Operation)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError
func NewUnsupportedOperationError(operation string) *UnsupportedOperationError {
	return &UnsupportedOperationError{Operation: operation}
}

// InvalidFacetQueryFormatError represents a facet query key of unknown shape
type InvalidFacetQueryFormatError struct {
	Query string
}

func (e *InvalidFacetQueryFormatError) Error() string {
	return fmt.Sprintf("facet query '%s' has an invalid format", e.Query)
}

func (e *InvalidFacetQueryFormatError) Is(target error) bool {
	return target == ErrInvalidFacetQueryFormat
}

// NewInvalidFacetQueryFormatError creates a new InvalidFacetQueryFormatError
func NewInvalidFacetQueryFormatError(query string) *InvalidFacetQueryFormatError {
	return &InvalidFacetQueryFormatError{Query: query}
}

// MissingTransformationError represents a missing per-attribute transformation
type MissingTransformationError struct {
	AttributeCode string
}

func (e *MissingTransformationError) Error() string {
	return fmt.Sprintf("no facet field transformation registered for '%s'", e.AttributeCode)
}

func (e *MissingTransformationError) Is(target error) bool {
	return target == ErrMissingTransformation
}

// NewMissingTransformationError creates a new MissingTransformationError
func NewMissingTransformationError(code string) *MissingTransformationError {
	return &MissingTransformationError{AttributeCode: code}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
