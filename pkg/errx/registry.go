package errx

import (
	"fmt"
	"sync"
)

// ErrorCode is a registered, prefixed error code with its public defaults.
// Compare errors against it with IsCode.
type ErrorCode struct {
	Code       string
	Type       Type
	HTTPStatus int
	Message    string
}

// Registry owns the codes of one package. Codes are registered from
// package-level var blocks, so a duplicate is a programming error and
// panics at init.
type Registry struct {
	prefix string

	mu    sync.Mutex
	codes map[string]struct{}
}

func NewRegistry(prefix string) *Registry {
	return &Registry{prefix: prefix, codes: make(map[string]struct{})}
}

// Register declares PREFIX_code.
func (r *Registry) Register(code string, errType Type, httpStatus int, message string) *ErrorCode {
	full := fmt.Sprintf("%s_%s", r.prefix, code)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.codes[full]; dup {
		panic("errx: duplicate error code " + full)
	}
	r.codes[full] = struct{}{}

	return &ErrorCode{Code: full, Type: errType, HTTPStatus: httpStatus, Message: message}
}

// New creates an error carrying the code's defaults
func (r *Registry) New(code *ErrorCode) *Error {
	return &Error{
		Code:       code.Code,
		Message:    code.Message,
		Type:       code.Type,
		HTTPStatus: code.HTTPStatus,
		Details:    make(map[string]any),
	}
}

// NewWithCause is New plus an underlying cause that never reaches clients
func (r *Registry) NewWithCause(code *ErrorCode, cause error) *Error {
	e := r.New(code)
	e.Err = cause
	return e
}
