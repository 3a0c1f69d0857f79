package filter

import (
	"errors"
	"fmt"
)

// ErrBadParameter indicates a structurally invalid predicate: wrong argument
// count, a non-literal where a literal is required, an unknown analyzer or
// EXISTS type, or an unresolvable reference. Type mismatches are never
// reported; they compile to filters that match nothing.
var ErrBadParameter = errors.New("bad parameter")

// Error describes a compilation failure.
type Error struct {
	// Function is the function being compiled, empty for operators.
	Function string

	// Message describes the problem.
	Message string
}

func (e *Error) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("bad parameter in %s: %s", e.Function, e.Message)
	}
	return "bad parameter: " + e.Message
}

// Unwrap makes errors.Is(err, ErrBadParameter) hold.
func (e *Error) Unwrap() error { return ErrBadParameter }

func badParameter(function, format string, args ...any) error {
	return &Error{Function: function, Message: fmt.Sprintf(format, args...)}
}
