package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure surfaced by the engine.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidToken
	KindExpired
	KindPermissionDenied
	KindValidation
	KindConflict
	KindRemoteFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidToken:
		return "InvalidToken"
	case KindExpired:
		return "Expired"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindValidation:
		return "ValidationError"
	case KindConflict:
		return "Conflict"
	case KindRemoteFailure:
		return "RemoteFailure"
	}
	return "Unknown"
}

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpired          = errors.New("token expired")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrRemoteFailure    = errors.New("remote failure")

	// Refinements; each unwraps to one of the kind sentinels above.
	ErrNoSession          = fmt.Errorf("no active session: %w", ErrPermissionDenied)
	ErrInvalidTransition  = fmt.Errorf("invalid status transition: %w", ErrPermissionDenied)
	ErrNotFound           = fmt.Errorf("article not found: %w", ErrConflict)
	ErrCategoryNotFound   = fmt.Errorf("category not found: %w", ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrValidation)
	ErrUserExists         = fmt.Errorf("user already exists: %w", ErrConflict)
	ErrUserNotFound       = fmt.Errorf("user not found: %w", ErrValidation)
)

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindInvalidToken, ErrInvalidToken},
	{KindExpired, ErrExpired},
	{KindPermissionDenied, ErrPermissionDenied},
	{KindValidation, ErrValidation},
	{KindConflict, ErrConflict},
	{KindRemoteFailure, ErrRemoteFailure},
}

// Error carries an ErrorKind together with the remote status when one exists.
type Error struct {
	Kind   ErrorKind
	Op     string
	Msg    string
	Status int // transport status for RemoteFailure; 0 when no response was received
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	for _, ks := range kindSentinels {
		if ks.kind == e.Kind && ks.err == target {
			return true
		}
	}
	return false
}

// NewError builds an Error of kind for op.
func NewError(kind ErrorKind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// RemoteError builds a RemoteFailure that preserves the transport status.
func RemoteError(op string, status int, err error) *Error {
	return &Error{Kind: KindRemoteFailure, Op: op, Status: status, Err: err}
}

// KindOf returns the ErrorKind err belongs to.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindUnknown
}
