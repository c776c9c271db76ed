package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSeparator separates a failure kind from its cause in error messages.
const ErrSeparator = " -- "

// Error provides a string based error type allowing the definition of const errors in packages
type Error string

const (
	// ErrFetchFailure is returned when a document cannot be read from disk or the network.
	ErrFetchFailure = Error("fetch failure")
	// ErrParseFailure is returned when a document was fetched but is not valid JSON or YAML.
	ErrParseFailure = Error("parse failure")
	// ErrUnresolvedPointer is returned when a document was loaded but the pointer fragment addresses nothing.
	ErrUnresolvedPointer = Error("unresolved pointer")
	// ErrCircularPointer is returned when a chain of references leads back to itself without reaching a node.
	ErrCircularPointer = Error("self-referencing circular pointer")
	// ErrDocumentRequired is returned when neither a root document nor a reference to one is supplied.
	ErrDocumentRequired = Error("document or reference is required")
)

func (s Error) Error() string {
	return string(s)
}

// Is reports whether target is this Error or an Error wrapped by it.
func (s Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return s.Error() == target.Error() || strings.HasPrefix(target.Error(), s.Error()+ErrSeparator)
}

// Wrap adds err as the cause of this Error.
func (s Error) Wrap(err error) error {
	return &wrappedError{kind: s, cause: err}
}

type wrappedError struct {
	kind  Error
	cause error
}

func (w *wrappedError) Error() string {
	if w.cause != nil {
		return fmt.Sprintf("%s%s%v", w.kind, ErrSeparator, w.cause)
	}
	return string(w.kind)
}

func (w *wrappedError) Unwrap() []error {
	if w.cause == nil {
		return []error{w.kind}
	}
	return []error{w.kind, w.cause}
}

// LocatorError ties a failure kind to the document (and optionally the pointer) it happened on.
type LocatorError struct {
	Kind    Error
	Locator string
	Pointer string
	Err     error
}

var _ error = (*LocatorError)(nil)

// NewFetchError reports that locator could not be read.
func NewFetchError(locator string, err error) *LocatorError {
	return &LocatorError{Kind: ErrFetchFailure, Locator: locator, Err: err}
}

// NewParseError reports that the body behind locator is not a valid document.
func NewParseError(locator string, err error) *LocatorError {
	return &LocatorError{Kind: ErrParseFailure, Locator: locator, Err: err}
}

// NewPointerError reports that pointer addresses nothing inside locator.
func NewPointerError(locator, pointer string, err error) *LocatorError {
	return &LocatorError{Kind: ErrUnresolvedPointer, Locator: locator, Pointer: pointer, Err: err}
}

// NewCircularError reports a reference chain that loops back to pointer.
func NewCircularError(locator, pointer string) *LocatorError {
	return &LocatorError{Kind: ErrCircularPointer, Locator: locator, Pointer: pointer}
}

func (e *LocatorError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(ErrSeparator)
	sb.WriteString(e.Locator)
	if e.Pointer != "" {
		sb.WriteString(e.Pointer)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *LocatorError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// The below are just wrappers as we are stealing the namespace of the errors package

// Is checks if err is equivalent to target
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns a new error with the specified message.
func New(message string) error {
	return errors.New(message)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

type JoinedErrors interface {
	Unwrap() []error
}

// UnwrapErrors flattens one level of a joined error.
func UnwrapErrors(err error) []error {
	if err == nil {
		return nil
	}

	if je, ok := err.(JoinedErrors); ok {
		return je.Unwrap()
	}
	return []error{err}
}
