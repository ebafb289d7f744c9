package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrRestore marks a failed restore. The bundle that could not be
	// restored is available through *RestoreError.
	ErrRestore = errors.New("restore error")
	// ErrFormat marks bytes that are not a valid encoded bundle.
	ErrFormat = errors.New("invalid bundle encoding")
)

// RestoreError reports a failure to rebuild a unit, with the original bundle
// attached for diagnosis.
type RestoreError struct {
	Bundle StateBundle
	Err    error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRestore, e.Err)
}

func (e *RestoreError) Unwrap() []error { return []error{ErrRestore, e.Err} }
