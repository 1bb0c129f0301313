// Package errs carries the pipeline error taxonomy. Consumers use the Kind of
// an error to decide between dropping a message, skipping it, or giving up on
// the connection entirely.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindConnection: broker or store unreachable. Retried with bounded
	// backoff at startup, fatal once retries are exhausted.
	KindConnection Kind = "connection"
	// KindValidation: malformed or incomplete event. The message is dropped.
	KindValidation Kind = "validation"
	// KindNotFound: a referenced entity is missing where existence is
	// required. The single message is abandoned.
	KindNotFound Kind = "not_found"
	// KindTransientStore: an individual operation against the graph store or
	// a collaborator failed. Logged per message, the next message proceeds.
	KindTransientStore Kind = "transient_store"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func Connection(op string, err error) *Error {
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

func Validation(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func NotFound(op string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

func TransientStore(op string, err error) *Error {
	return &Error{Kind: KindTransientStore, Op: op, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsNotFound(err error) bool   { return IsKind(err, KindNotFound) }
func IsConnection(err error) bool { return IsKind(err, KindConnection) }
