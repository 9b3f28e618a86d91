package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the HTTP layer can map them to status codes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindUpstream
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the tagged error returned by validation and the upstream clients.
// Message is safe to show to callers; Err holds the underlying cause.
type Error struct {
	Kind       ErrorKind
	Op         string
	Message    string
	PostalCode PostalCode
	Status     int // upstream HTTP status, 0 when no response was received
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// ValidationError returns a KindValidation error with a caller-facing message.
func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFoundError returns a KindNotFound error naming the postal code.
func NotFoundError(op string, code PostalCode) *Error {
	return &Error{
		Kind:       KindNotFound,
		Op:         op,
		Message:    fmt.Sprintf("Zip code '%s' not found", code),
		PostalCode: code,
	}
}
