// Package recovery converts panics in compilation and commit code into
// errors so that a faulty predicate or analyzer cannot take the process down.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanic is wrapped by every error produced from a recovered panic.
var ErrPanic = errors.New("internal error")

// logPanic records a recovered panic with its stack.
func logPanic(logger *slog.Logger, msg, operation string, r any) {
	logger.Error(msg,
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}

func panicError(operation string, r any) error {
	return fmt.Errorf("%w: %s panicked: %v", ErrPanic, operation, r)
}

// RecoverToError runs fn and converts a panic into an error wrapping
// ErrPanic.
//
//	err := recovery.RecoverToError(logger, "Commit", func() error {
//	    _, err := writer.Commit(ctx)
//	    return err
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, "Panic recovered", operation, r)
			err = panicError(operation, r)
		}
	}()
	return fn()
}

// RecoverToValue is RecoverToError for functions returning a value. The
// value is zero when fn panics.
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, "Panic recovered", operation, r)
			var zero T
			result, err = zero, panicError(operation, r)
		}
	}()
	return fn()
}

// Recover runs fn and logs a panic instead of propagating it.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, "Panic recovered in cleanup", operation, r)
		}
	}()
	fn()
}
