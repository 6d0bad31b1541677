package batch

import (
	"errors"
	"fmt"
)

// Kind classifies why an item failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingInput
	KindExternalProcess
	KindFilesystem
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "missing input"
	case KindExternalProcess:
		return "external process"
	case KindFilesystem:
		return "filesystem"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a failure attached to one batch item.
type Error struct {
	Item string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Item, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an *Error with a formatted cause.
func Errorf(item string, kind Kind, format string, args ...any) *Error {
	return &Error{Item: item, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind and item to err. An err that already carries a kind
// keeps it; only a missing item name is filled in.
func Wrap(item string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		if be.Item == "" {
			return &Error{Item: item, Kind: be.Kind, Err: be.Err}
		}
		return be
	}
	return &Error{Item: item, Kind: kind, Err: err}
}

// KindOf reports the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// SkipError marks an item as intentionally not processed.
type SkipError struct {
	Reason string
}

func (s *SkipError) Error() string {
	return "skipped: " + s.Reason
}

// Skip returns an error that Run records as a skip instead of a failure.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}
