package container

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath is returned when a dotted path does not resolve in a
	// container tree.
	ErrInvalidPath = errors.New("invalid path")
	// ErrNoMethod is returned when calling a container without a bound method.
	ErrNoMethod = errors.New("no method bound")
	// ErrInvalidSlot is returned when a slot name or value is not acceptable.
	ErrInvalidSlot = errors.New("invalid slot")
)

// PathError describes a path that failed to resolve.
type PathError struct {
	Path    string
	Segment string
	Msg     string
}

func (e *PathError) Error() string {
	if e == nil {
		return ""
	}
	if e.Segment == "" {
		return fmt.Sprintf("%s %q: %s", ErrInvalidPath, e.Path, e.Msg)
	}
	return fmt.Sprintf("%s %q: segment %q %s", ErrInvalidPath, e.Path, e.Segment, e.Msg)
}

func (e *PathError) Unwrap() error { return ErrInvalidPath }

func invalidPath(path, segment, msg string) error {
	return &PathError{Path: path, Segment: segment, Msg: msg}
}
