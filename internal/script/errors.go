package script

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

var (
	// ErrCompile marks source that failed to compile. For synthesized source
	// this always indicates a defect in the generator.
	ErrCompile = errors.New("compile error")
	// ErrBind marks compiled source that does not define the expected symbol.
	ErrBind = errors.New("bind error")
	// ErrExec marks a failure while running a bound function.
	ErrExec = errors.New("execution error")
)

// CompileError reports syntax or structure problems in source text.
type CompileError struct {
	Key   string
	Diags hcl.Diagnostics
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s in %s: %s", ErrCompile, e.Key, e.Diags.Error())
}

func (e *CompileError) Unwrap() []error { return []error{ErrCompile, e.Diags} }

// BindError reports a missing symbol after executing compiled source.
type BindError struct {
	Key    string
	Symbol string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s in %s: symbol %q is not defined", ErrBind, e.Key, e.Symbol)
}

func (e *BindError) Unwrap() error { return ErrBind }

// ExecError reports a failure while evaluating a bound function.
type ExecError struct {
	Key   string
	Func  string
	Msg   string
	Diags hcl.Diagnostics
}

func (e *ExecError) Error() string {
	if len(e.Diags) > 0 {
		return fmt.Sprintf("%s in %s (%s): %s", ErrExec, e.Key, e.Func, e.Diags.Error())
	}
	return fmt.Sprintf("%s in %s (%s): %s", ErrExec, e.Key, e.Func, e.Msg)
}

func (e *ExecError) Unwrap() []error {
	if len(e.Diags) > 0 {
		return []error{ErrExec, e.Diags}
	}
	return []error{ErrExec}
}
