// Package apperr defines the error kinds surfaced by the back office.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for the caller. Kinds are comparable with
// errors.Is, so errors.Is(err, apperr.NotFound) works on any wrapped *Error.
type Kind struct {
	name string
}

func (k *Kind) Error() string { return k.name }

var (
	InvalidInput      = &Kind{name: "invalid input"}
	InvalidState      = &Kind{name: "invalid state"}
	NotFound          = &Kind{name: "not found"}
	ResourceExhausted = &Kind{name: "resource exhausted"}
	ConflictingEdit   = &Kind{name: "conflicting edit"}
	Upstream          = &Kind{name: "upstream"}
)

type Error struct {
	Kind *Kind
	// Op names the failing operation, e.g. "draft.Promote".
	Op  string
	Msg string
	Err error
	// Fields holds per-field messages for InvalidInput.
	Fields map[string]string
	// UserID is the current editor for ConflictingEdit.
	UserID string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.name)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind *Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Newf(kind *Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind *Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Invalid builds an InvalidInput error with per-field messages.
func Invalid(op string, fields map[string]string) *Error {
	return &Error{Kind: InvalidInput, Op: op, Msg: "invalid input", Fields: fields}
}

// Conflict reports that userID already holds the edit.
func Conflict(op, userID string) *Error {
	return &Error{
		Kind:   ConflictingEdit,
		Op:     op,
		Msg:    fmt.Sprintf("range is being edited by user %s", userID),
		UserID: userID,
	}
}

// KindOf returns the kind of err, or nil for unclassified errors.
func KindOf(err error) *Kind {
	for _, k := range []*Kind{InvalidInput, InvalidState, NotFound, ResourceExhausted, ConflictingEdit, Upstream} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the user facing text of err without the operation prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Kind.name
	}
	return err.Error()
}

// FieldErrors returns the per-field messages carried by err, if any.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
