package generator

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/rhi-bindgen/parser"
)

// Generation errors. Any of them aborts the whole run.
var (
	ErrUnrecognizedType = parser.ErrUnrecognizedType
	ErrNameCollision    = errors.New("name collision")
	ErrMissingAdapter   = errors.New("missing adapter")
)

// UnrecognizedTypeError reports a type string no resolution rule covers.
type UnrecognizedTypeError struct {
	Where string
	Type  string
	Err   error
}

func (e *UnrecognizedTypeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Where, e.Err)
}

func (e *UnrecognizedTypeError) Unwrap() error { return e.Err }

// NameCollisionError reports two declarations mapping to one target name.
type NameCollisionError struct {
	Target string
	First  string
	Second string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("name collision: %s and %s both map to %s", e.First, e.Second, e.Target)
}

func (e *NameCollisionError) Is(target error) bool { return target == ErrNameCollision }

// UnhandledOverloadError reports an overloaded function none of the
// disambiguation substrings matched.
type UnhandledOverloadError struct {
	Function string
	Param    string
}

func (e *UnhandledOverloadError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("name collision: unhandled overload of %s without parameters", e.Function)
	}
	return fmt.Sprintf("name collision: unhandled overload of %s (first parameter %q)", e.Function, e.Param)
}

func (e *UnhandledOverloadError) Is(target error) bool { return target == ErrNameCollision }

// MissingAdapterError reports a function whose parameters need reshaping
// but which has no adapter registered, or whose shape the registered
// adapter cannot handle.
type MissingAdapterError struct {
	Function string
	Reason   string
}

func (e *MissingAdapterError) Error() string {
	return fmt.Sprintf("missing adapter for %s: %s", e.Function, e.Reason)
}

func (e *MissingAdapterError) Is(target error) bool { return target == ErrMissingAdapter }
