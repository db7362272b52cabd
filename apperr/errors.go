// Package apperr defines the error kinds surfaced by the stores, the policy
// engine and the HTTP layer. Every business-rule violation maps to a 4xx.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindDuplicateName       Kind = "duplicate_name"
	KindDuplicateMembership Kind = "duplicate_membership"
	KindPrerequisiteNotMet  Kind = "prerequisite_not_met"
	KindInvalidOperation    Kind = "invalid_operation"
	KindValidation          Kind = "validation_error"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindInternal            Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindNotFound:            http.StatusNotFound,
	KindDuplicateName:       http.StatusConflict,
	KindDuplicateMembership: http.StatusConflict,
	KindPrerequisiteNotMet:  http.StatusUnprocessableEntity,
	KindInvalidOperation:    http.StatusBadRequest,
	KindValidation:          http.StatusBadRequest,
	KindUnauthorized:        http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindInternal:            http.StatusInternalServerError,
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
		}
		msg = msg + " (" + strings.Join(parts, ", ") + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error            { return New(KindNotFound, msg) }
func DuplicateName(msg string) *Error       { return New(KindDuplicateName, msg) }
func DuplicateMembership(msg string) *Error { return New(KindDuplicateMembership, msg) }
func PrerequisiteNotMet(msg string) *Error  { return New(KindPrerequisiteNotMet, msg) }
func InvalidOperation(msg string) *Error    { return New(KindInvalidOperation, msg) }
func Unauthorized(msg string) *Error        { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error           { return New(KindForbidden, msg) }

func Internal(err error, msg string) error {
	return Wrap(KindInternal, err, msg)
}

// Validation builds a validation error from per-field messages.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// FieldError is a shorthand for a single failing field.
func FieldError(field, msg string) *Error {
	return Validation(map[string][]string{field: {msg}})
}

// KindOf extracts the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func StatusOf(err error) int {
	return KindOf(err).Status()
}
