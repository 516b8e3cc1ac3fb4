// Package common defines shared constants, sentinel errors and the tagged
// error type used across the upload pipeline. Callers should use errors.Is
// to match sentinels and KindOf to discriminate failures by kind.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors.
	ErrTokenMissing = errors.New("access token is required")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnknownOwner = errors.New("invalid user")

	// Upload errors.
	ErrTooManyFiles      = errors.New("too many files")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoFiles           = errors.New("no files uploaded")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrPathOutsideRoot   = errors.New("path outside upload root")
)

// Kind classifies an error by how the caller should react to it.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindProcessing
	KindClassification
	KindPersistence
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindProcessing:
		return "processing"
	case KindClassification:
		return "classification"
	case KindPersistence:
		return "persistence"
	case KindCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Error is an error tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds a tagged error. A nil err is replaced by the kind name so the
// result always has a message.
func E(kind Kind, op string, err error) *Error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is a shorthand for E(kind, op, fmt.Errorf(format, args...)).
func Errorf(kind Kind, op string, format string, args ...any) *Error {
	return E(kind, op, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost tagged error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
