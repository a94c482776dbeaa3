package domain

import (
	"errors"
	"fmt"
)

// Store level errors returned by repositories.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Kind classifies a service error.
type Kind string

const (
	KindUnauthenticated            Kind = "unauthenticated"
	KindUnauthorized               Kind = "unauthorized"
	KindNotFound                   Kind = "not_found"
	KindAlreadyMember              Kind = "already_member"
	KindAlreadyRequested           Kind = "already_requested"
	KindAlreadyOwner               Kind = "already_owner"
	KindInvalidState               Kind = "invalid_state"
	KindMissingPlaceholder         Kind = "missing_placeholder"
	KindInconsistentEmbeddingModel Kind = "inconsistent_embedding_model"
	KindInvalidArgument            Kind = "invalid_argument"
	KindStoreFailure               Kind = "store_failure"
)

// Error is returned by services for every failure a caller can act on.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a service error with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StoreFailure wraps an unexpected store error.
func StoreFailure(err error) *Error {
	return &Error{Kind: KindStoreFailure, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, or KindStoreFailure when err is not a
// service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
