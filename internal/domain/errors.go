package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// Fetch operations reported in FetchError.Op
const (
	FetchOpRequest = "request" // building or sending the request
	FetchOpStatus  = "status"  // non-success HTTP status
	FetchOpDecode  = "decode"  // reading or parsing the payload
)

// FetchError is the single failure kind of the market data source.
// It covers network, HTTP status and deserialization failures.
type FetchError struct {
	Op         string // FetchOpRequest, FetchOpStatus or FetchOpDecode
	StatusCode int    // set when Op == FetchOpStatus
	Err        error
}

func (e *FetchError) Error() string {
	if e.Op == FetchOpStatus {
		return fmt.Sprintf("fetch %s: %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return "fetch " + e.Op + ": " + e.Err.Error()
}

// IsRetriable reports true for network failures, 429 and 5xx responses.
func (e *FetchError) IsRetriable() bool {
	switch e.Op {
	case FetchOpRequest:
		return true
	case FetchOpStatus:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewRequestError wraps a transport failure.
func NewRequestError(err error) *FetchError {
	return &FetchError{Op: FetchOpRequest, Err: err}
}

// NewStatusError reports a non-success HTTP status.
func NewStatusError(code int) *FetchError {
	return &FetchError{Op: FetchOpStatus, StatusCode: code, Err: ErrUnexpectedStatus}
}

// NewDecodeError wraps a payload read or parse failure.
func NewDecodeError(err error) *FetchError {
	return &FetchError{Op: FetchOpDecode, Err: err}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnexpectedStatus is wrapped by status FetchErrors.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrInvalidPageSize is returned when a page size is not one of PageSizeOptions.
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrInvalidSymbol is returned when a coin id or symbol cannot be used as a file name.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
