package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so transports can map it to a status.
type ErrorKind string

const (
	KindMissingField      ErrorKind = "MissingField"
	KindInvalidField      ErrorKind = "InvalidField"
	KindInvalidIdentifier ErrorKind = "InvalidIdentifier"
	KindNotFound          ErrorKind = "NotFound"
	KindUnauthorized      ErrorKind = "Unauthorized"
	KindForbidden         ErrorKind = "Forbidden"
	KindInternal          ErrorKind = "InternalFailure"
	KindPartialFailure    ErrorKind = "PartialFailure"
)

// Resource names used by NotFound errors.
const (
	ResourcePost    = "post"
	ResourceComment = "comment"
	ResourceUser    = "user"
)

// ReasonNoUsableUser marks a NotFound(user) raised because no author could be attributed.
const ReasonNoUsableUser = "NoUsableUser"

// AppError is a structured application error.
type AppError struct {
	Kind     ErrorKind
	Field    string
	Resource string
	Reason   string
	Message  string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewMissingFieldError(field string) *AppError {
	return &AppError{Kind: KindMissingField, Field: field, Message: field + " is required"}
}

func NewInvalidFieldError(field, message string) *AppError {
	return &AppError{Kind: KindInvalidField, Field: field, Message: message}
}

func NewInvalidIdentifierError(raw string) *AppError {
	return &AppError{Kind: KindInvalidIdentifier, Field: "id", Message: fmt.Sprintf("invalid identifier %q", raw)}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Resource: resource, Message: resource + " not found"}
}

func NewNoUsableUserError() *AppError {
	return &AppError{
		Kind:     KindNotFound,
		Resource: ResourceUser,
		Reason:   ReasonNoUsableUser,
		Message:  "no user available to attribute the content to",
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

func NewPartialFailureError(message string, err error) *AppError {
	return &AppError{Kind: KindPartialFailure, Message: message, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
