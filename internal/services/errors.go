package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoConnection    = errors.New("no connection")
	ErrTimeout         = errors.New("timeout")
	ErrServer          = errors.New("server error")
	ErrResourceCorrupt = errors.New("resource corrupt")
	ErrForcedFailure   = errors.New("forced failure")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrUnknown         = errors.New("unknown error")
)

// Error kinds reported through ErrorKind.
const (
	KindNoConnection    = "no-connection"
	KindTimeout         = "timeout"
	KindServer          = "server-error"
	KindResourceCorrupt = "resource-corrupt"
	KindForcedFailure   = "forced-failure"
	KindNotFound        = "not_found"
	KindValidation      = "validation"
	KindUnknown         = "unknown"
)

var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrNoConnection, KindNoConnection},
	{ErrTimeout, KindTimeout},
	{ErrServer, KindServer},
	{ErrResourceCorrupt, KindResourceCorrupt},
	{ErrForcedFailure, KindForcedFailure},
	{ErrNotFound, KindNotFound},
	{ErrValidation, KindValidation},
	{ErrUnknown, KindUnknown},
}

// Error is a categorized failure produced by Wrap.
type Error struct {
	Marker     error
	Component  string
	Operation  string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Component, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// ErrorKind reports the category of the marker.
func (e *Error) ErrorKind() string {
	return kindForMarker(e.Marker)
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrUnknown
	}
	return &Error{
		Marker:    marker,
		Component: component,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// ServerError reports a non-success HTTP status from a remote collaborator.
func ServerError(component, operation string, status int) error {
	return &Error{
		Marker:     ErrServer,
		Component:  component,
		Operation:  operation,
		Message:    fmt.Sprintf("server returned %d", status),
		StatusCode: status,
	}
}

// KindOf classifies err. Errors that carry no marker are "unknown".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var classified interface{ ErrorKind() string }
	if errors.As(err, &classified) {
		if kind := classified.ErrorKind(); kind != "" {
			return kind
		}
	}
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			return mk.kind
		}
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by a server error, or zero.
func StatusCode(err error) int {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode
	}
	return 0
}

func kindForMarker(marker error) string {
	for _, mk := range markerKinds {
		if errors.Is(marker, mk.marker) {
			return mk.kind
		}
	}
	return KindUnknown
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
