// Package errorx provides coded errors for the HTTP boundary.
//
// Every externally visible failure carries a registered integer code that
// maps to an HTTP status and a stable human-readable message. Internal
// errors wrap the code so the handler layer can translate them uniformly.
package errorx

import (
	"fmt"
	"net/http"
	"sync"
)

// Coder describes a registered error code.
type Coder interface {
	// Code returns the integer code of this error.
	Code() int
	// HTTPStatus returns the associated HTTP status.
	HTTPStatus() int
	// String returns the external user-facing message.
	String() string
	// Reference returns a documentation link, if any.
	Reference() string
}

var (
	codesMu sync.RWMutex
	codes   = map[int]Coder{}
)

// unknownCoder is returned for codes that were never registered.
type unknownCoder struct{}

func (unknownCoder) Code() int         { return 1 }
func (unknownCoder) HTTPStatus() int   { return http.StatusInternalServerError }
func (unknownCoder) String() string    { return "An internal server error occurred" }
func (unknownCoder) Reference() string { return "" }

// MustRegister registers a Coder and panics on duplicates.
// Intended for init()-time registration only.
func MustRegister(coder Coder) {
	if coder.Code() == 1 {
		panic("code 1 is reserved as the unknown error code")
	}
	codesMu.Lock()
	defer codesMu.Unlock()
	if _, ok := codes[coder.Code()]; ok {
		panic(fmt.Sprintf("code %d already registered", coder.Code()))
	}
	codes[coder.Code()] = coder
}

// ParseCoder resolves an error to its registered Coder.
// Unregistered or nil errors resolve to the unknown coder.
func ParseCoder(err error) Coder {
	if err == nil {
		return nil
	}
	if v, ok := err.(*withCode); ok {
		codesMu.RLock()
		defer codesMu.RUnlock()
		if coder, ok := codes[v.code]; ok {
			return coder
		}
	}
	return unknownCoder{}
}

// IsCode reports whether err (or any wrapped cause) carries the given code.
func IsCode(err error, code int) bool {
	if v, ok := err.(*withCode); ok {
		if v.code == code {
			return true
		}
		if v.cause != nil {
			return IsCode(v.cause, code)
		}
	}
	return false
}

// withCode is an error bound to a registered code.
type withCode struct {
	err   error
	code  int
	cause error
}

func (w *withCode) Error() string { return w.err.Error() }

func (w *withCode) Unwrap() error { return w.cause }

// WithCode creates a coded error from a format string.
func WithCode(code int, format string, args ...interface{}) error {
	return &withCode{
		err:  fmt.Errorf(format, args...),
		code: code,
	}
}

// WrapC wraps an existing error with a code and a contextual message.
func WrapC(err error, code int, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withCode{
		err:   fmt.Errorf("%s: %v", fmt.Sprintf(format, args...), err),
		code:  code,
		cause: err,
	}
}
