package domain

import (
	"errors"
	"fmt"
	"time"
)

// Errors for the marketplace domain
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrWarehouseNotFound  = errors.New("warehouse not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrMappingNotFound    = errors.New("category mapping not found")
	ErrWarehouseNotLinked = errors.New("warehouse is not linked to marketplace")
)

// Marketplace identifies a supported marketplace
type Marketplace string

const (
	MarketplaceOzon    Marketplace = "ozon"
	MarketplaceWB      Marketplace = "wb"
	MarketplaceYandex  Marketplace = "yandex"
)

// IsValid checks if the marketplace identifier is supported
func (m Marketplace) IsValid() bool {
	switch m {
	case MarketplaceOzon, MarketplaceWB, MarketplaceYandex:
		return true
	}
	return false
}

func (m Marketplace) String() string {
	return string(m)
}

// ErrorKind classifies marketplace call failures
type ErrorKind string

const (
	ErrKindAuth        ErrorKind = "auth"
	ErrKindValidation  ErrorKind = "validation"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindUnavailable ErrorKind = "upstream_unavailable"
	ErrKindUnknown     ErrorKind = "unknown"
)

// MarketplaceError is the single error type crossing the adapter boundary.
// Raw transport and upstream-specific errors never escape an adapter
// without being wrapped into one of these.
type MarketplaceError struct {
	Marketplace Marketplace
	Kind        ErrorKind
	Message     string
	Err         error

	// RetryAfter carries the upstream's throttle hint when Kind is
	// ErrKindRateLimited. Zero means no hint was given.
	RetryAfter time.Duration
}

func (e *MarketplaceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Marketplace, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Marketplace, e.Kind, e.Message)
}

func (e *MarketplaceError) Unwrap() error {
	return e.Err
}

// NewMarketplaceError creates a MarketplaceError
func NewMarketplaceError(marketplace Marketplace, kind ErrorKind, message string) *MarketplaceError {
	return &MarketplaceError{Marketplace: marketplace, Kind: kind, Message: message}
}

// WrapMarketplaceError wraps an underlying error into a MarketplaceError
func WrapMarketplaceError(marketplace Marketplace, kind ErrorKind, message string, err error) *MarketplaceError {
	return &MarketplaceError{Marketplace: marketplace, Kind: kind, Message: message, Err: err}
}

// AsMarketplaceError extracts a MarketplaceError from an error chain
func AsMarketplaceError(err error) (*MarketplaceError, bool) {
	var mpErr *MarketplaceError
	if errors.As(err, &mpErr) {
		return mpErr, true
	}
	return nil, false
}

// IsErrorKind reports whether err is a MarketplaceError of the given kind
func IsErrorKind(err error, kind ErrorKind) bool {
	mpErr, ok := AsMarketplaceError(err)
	return ok && mpErr.Kind == kind
}
