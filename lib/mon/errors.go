package mon

import (
	"fmt"

	"github.com/ValentinKolb/monstore/lib/compat"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. Every error in this package is terminal for the
// operation that produced it; there is no local recovery or retry anywhere
// in bootstrap, injection or startup validation.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.

	// Missing holds the unsupported feature diff for RetCUnsupportedFeature
	// errors, so the operator sees exactly which features the running
	// software lacks.
	Missing compat.CompatSet
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCIOError:
		errorCode = "IOError"
	case RetCCorruption:
		errorCode = "CorruptionError"
	case RetCUnsupportedFeature:
		errorCode = "UnsupportedFeatureError"
	case RetCUninitialized:
		errorCode = "UninitializedError"
	case RetCExists:
		errorCode = "ExistsError"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	if e.Code == RetCUnsupportedFeature && !e.Missing.Empty() {
		return fmt.Sprintf("MonError (code %s): %s: missing %v", errorCode, e.Msg, e.Missing)
	}
	return fmt.Sprintf("MonError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewUnsupportedFeatureError creates an error carrying the feature diff.
func NewUnsupportedFeatureError(msg string, missing compat.CompatSet) *Error {
	return &Error{
		Code:    RetCUnsupportedFeature,
		Msg:     msg,
		Missing: missing,
	}
}

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code RetCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation executed successfully.
	RetCIOError                           // 1: Store unreadable or unwritable.
	RetCCorruption                        // 2: Magic mismatch, decode failure or epoch mismatch inside a blob.
	RetCUnsupportedFeature                // 3: On-disk format requires features this software lacks.
	RetCUninitialized                     // 4: Required record or map missing; the store was never bootstrapped.
	RetCExists                            // 5: Target already holds an initialized store.
	RetCInvalidOperation                  // 6: Invalid operation or argument.
)
