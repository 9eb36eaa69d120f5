package keel

import (
	"errors"
	"fmt"
)

// Kind is the canonical, backend-agnostic error taxonomy described in the
// engine's error handling design. Every error the engine returns across a
// package boundary carries one of these kinds, so that a host (e.g. the
// HTTP wire adapter) never needs to inspect backend-specific strings to
// decide what status code or error tag to surface.
type Kind string

const (
	KindDestinationNotFound       Kind = "destination_not_found"
	KindIncorrectJSONFormat       Kind = "incorrect_json_format"
	KindUnexpectedInputRootType   Kind = "unexpected_input_root_type"
	KindUnexpectedInputType       Kind = "unexpected_input_type"
	KindUnexpectedInputKey        Kind = "unexpected_input_key"
	KindUnexpectedInputValue      Kind = "unexpected_input_value"
	KindMissingRequiredInput      Kind = "missing_required_input"
	KindObjectNotFound            Kind = "object_not_found"
	KindObjectNotSavedCantDelete  Kind = "object_is_not_saved_thus_cant_be_deleted"
	KindObjectIsDeleted           Kind = "object_is_deleted"
	KindUniqueValueDuplicated     Kind = "unique_value_duplicated"
	KindUnknownDatabaseWriteError Kind = "unknown_database_write_error"
	KindUnknownDatabaseFindError  Kind = "unknown_database_find_error"
	KindUnknownDatabaseDeleteError Kind = "unknown_database_delete_error"
	KindValidationError           Kind = "validation_error"
	KindInvalidAuthToken          Kind = "invalid_auth_token"
	KindInvalidAuthorizationFormat Kind = "invalid_authorization_format"
	KindWrongIdentityModel         Kind = "wrong_identity_model"
	KindInternalServerError        Kind = "internal_server_error"
)

// Error is the canonical engine error. Every error kind in the taxonomy is
// representable by this single type; Path and Field are populated only for
// the kinds that carry them (validation_error carries Path,
// unique_value_duplicated carries Field).
type Error struct {
	Kind    Kind
	Message string
	Path    string // dotted key path, for validation_error and input-shape errors
	Field   string // field name, for unique_value_duplicated
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("keel: %s at %s: %s", e.Kind, e.Path, e.Message)
	case e.Field != "":
		return fmt.Sprintf("keel: %s (field=%s): %s", e.Kind, e.Field, e.Message)
	default:
		return fmt.Sprintf("keel: %s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the wrapped error, if any, so errors.Is/As chain through.
func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is the same Kind, ignoring Message/Path/Field.
// This lets callers write errors.Is(err, &keel.Error{Kind: keel.KindObjectNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// Wrap builds an *Error of the given kind, wrapping an underlying cause.
// The cause's text is preserved in Message but Kind never leaks the
// underlying backend's own error type, per the propagation policy.
func Wrap(kind Kind, cause error, format string, a ...any) *Error {
	msg := fmt.Sprintf(format, a...)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Wrapped: cause}
}

// AtPath returns a copy of e with Path set, used when a validation error
// bubbles up through nested pipeline/object/relation frames and needs its
// key path prefixed by the enclosing field or relation name.
func (e *Error) AtPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// ValidationError constructs the validation_error kind carrying a key path
// and a human reason, as produced by pipeline validators and writeOnce
// enforcement.
func ValidationError(path, reason string) *Error {
	return &Error{Kind: KindValidationError, Path: path, Message: reason}
}

// UniqueValueDuplicated constructs the unique_value_duplicated kind.
func UniqueValueDuplicated(field string) *Error {
	return &Error{Kind: KindUniqueValueDuplicated, Field: field, Message: "unique constraint violated"}
}

// ObjectNotFound constructs the object_not_found kind.
func ObjectNotFound(label string) *Error {
	return &Error{Kind: KindObjectNotFound, Message: label}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
