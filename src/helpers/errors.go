package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type WatchTraderError struct {
	Message string
	Cause   error
}

func (e *WatchTraderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *WatchTraderError) Unwrap() error {
	return e.Cause
}

// Distinct error categories for type assertions at the API boundary.
type ConnectivityError struct{ WatchTraderError }
type ValidationError struct{ WatchTraderError }
type NotFoundError struct{ WatchTraderError }
type ComputationError struct{ WatchTraderError }
type TimeoutError struct{ WatchTraderError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewConnectivityError(message string, cause error) *ConnectivityError {
	return &ConnectivityError{WatchTraderError{Message: message, Cause: cause}}
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{WatchTraderError{Message: message, Cause: cause}}
}

func NewNotFoundError(message string, cause error) *NotFoundError {
	return &NotFoundError{WatchTraderError{Message: message, Cause: cause}}
}

func NewComputationError(message string, cause error) *ComputationError {
	return &ComputationError{WatchTraderError{Message: message, Cause: cause}}
}

func NewTimeoutError(message string, cause error) *TimeoutError {
	return &TimeoutError{WatchTraderError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Sentinel errors
// -----------------------------------------------------------------------------

var (
	ErrEmptyWatchlist       = errors.New("watchlist symbols cannot be empty")
	ErrNotInWatchlist       = errors.New("symbol is not in the active watchlist")
	ErrPriceUnavailable     = errors.New("no price observed yet for symbol")
	ErrUnsupportedReference = errors.New("side does not support this stop reference")
	ErrMissingCustomStop    = errors.New("customStop is required for CUSTOM reference")
	ErrReferenceUnavailable = errors.New("stop reference has no value yet")
	ErrQuantityTooSmall     = errors.New("computed quantity is below the minimum lot")
	ErrOrderNotFound        = errors.New("order not found")
	ErrUnknownSymbol        = errors.New("symbol cannot be qualified")
	ErrNotConnected         = errors.New("gateway is not connected")
)
