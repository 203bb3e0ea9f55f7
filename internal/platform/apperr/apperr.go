// Package apperr defines the platform error taxonomy. Every domain error is
// an *Error carrying a kind, a stable machine code and a human-readable
// message in Portuguese; the HTTP layer maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and for callers that branch on
// failure mode.
type Kind int

const (
	Internal Kind = iota
	ValidationFailed
	Unauthenticated
	Forbidden
	NotFound
	DuplicateIdentifier
	QuotaExceeded
	InUse
	SubscriptionInactive
	PatientRefInvalid
	SlotConflict
	SchedulingAccessExpired
	ExternalServiceFailed
)

func (k Kind) String() string {
	switch k {
	case ValidationFailed:
		return "validation_failed"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case DuplicateIdentifier:
		return "duplicate_identifier"
	case QuotaExceeded:
		return "quota_exceeded"
	case InUse:
		return "in_use"
	case SubscriptionInactive:
		return "subscription_inactive"
	case PatientRefInvalid:
		return "patient_ref_invalid"
	case SlotConflict:
		return "slot_conflict"
	case SchedulingAccessExpired:
		return "scheduling_access_expired"
	case ExternalServiceFailed:
		return "external_service_failed"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case ValidationFailed, PatientRefInvalid:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden, SchedulingAccessExpired:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case DuplicateIdentifier, InUse, SlotConflict:
		return http.StatusConflict
	case QuotaExceeded, SubscriptionInactive:
		return http.StatusUnprocessableEntity
	case ExternalServiceFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind with a user-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error. The message is user-facing; err is
// kept for logs only.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or Internal when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
