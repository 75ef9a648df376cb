// internal/apperrors/apperrors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engagement lifecycle. Services wrap these with
// context; handlers map them to HTTP statuses via errors.Is. None of them
// is retried automatically.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrNotFound           = errors.New("not found")
)

// DenyReason is the taxonomy surfaced verbatim to the caller when the
// identity and approval gate refuses an action.
type DenyReason string

const (
	DenyUnapproved           DenyReason = "unapproved"
	DenyWrongRole            DenyReason = "wrong_role"
	DenySubscriptionInactive DenyReason = "subscription_inactive"
	DenyNotOwner             DenyReason = "not_owner"
	DenyNotParticipant       DenyReason = "not_participant"
)

// DenyError is returned by the identity and approval gate. Role and
// standing failures unwrap to ErrUnauthorized; ownership and participation
// failures unwrap to ErrForbidden.
type DenyError struct {
	Reason DenyReason
	Detail string
}

func (e *DenyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return string(e.Reason)
}

func (e *DenyError) Unwrap() error {
	switch e.Reason {
	case DenyNotOwner, DenyNotParticipant:
		return ErrForbidden
	default:
		return ErrUnauthorized
	}
}

func Deny(reason DenyReason, detail string) error {
	return &DenyError{Reason: reason, Detail: detail}
}

// AsDeny extracts a DenyError if err carries one.
func AsDeny(err error) (*DenyError, bool) {
	var de *DenyError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Preconditionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
