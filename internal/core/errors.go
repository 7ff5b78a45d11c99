package core

import (
	"errors"
	"fmt"
)

// ValidationKind classifies why a candidate was rejected.
type ValidationKind string

const (
	MissingCurrency ValidationKind = "missing_currency"
	MissingField    ValidationKind = "missing_field"
	InvalidCurrency ValidationKind = "invalid_currency"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrMissingCurrency = errors.New("missing currency")
	ErrMissingField    = errors.New("missing field")
	ErrInvalidCurrency = errors.New("invalid currency code")

	ErrRateUnavailable = errors.New("conversion rate unavailable")
	ErrPersistence     = errors.New("persistence failed")
	ErrFetch           = errors.New("fetch failed")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownField  = errors.New("unknown field")
)

// ValidationError is returned for candidates the submitter must correct.
// It matches ErrValidation and the sentinel for its Kind.
type ValidationError struct {
	Kind  ValidationKind
	Field Field
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingCurrency:
		return "validation failed: currency code is required"
	case InvalidCurrency:
		return "validation failed: currency code must be a 3-letter ISO-4217 code"
	default:
		return fmt.Sprintf("validation failed: %s is required", e.Field)
	}
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return true
	case ErrMissingCurrency:
		return e.Kind == MissingCurrency
	case ErrMissingField:
		return e.Kind == MissingField
	case ErrInvalidCurrency:
		return e.Kind == InvalidCurrency
	}
	return false
}

// RateError reports that no usable rate exists for CurrencyCode.
type RateError struct {
	CurrencyCode string
	Err          error
}

func (e *RateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate for %s unavailable: %v", e.CurrencyCode, e.Err)
	}
	return fmt.Sprintf("rate for %s unavailable", e.CurrencyCode)
}

func (e *RateError) Is(target error) bool { return target == ErrRateUnavailable }

func (e *RateError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed store write.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "save expense: " + e.Err.Error() }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// FetchError wraps a failed store read during a cache refresh.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch expenses: " + e.Err.Error() }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

func (e *FetchError) Unwrap() error { return e.Err }
