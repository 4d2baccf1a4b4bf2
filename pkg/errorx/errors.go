package errorx

import (
	"fmt"
)

type withCode struct {
	err   error
	code  int
	cause error
}

// WithCode creates a coded error from a message.
func WithCode(code int, format string, args ...interface{}) error {
	return &withCode{
		err:  fmt.Errorf(format, args...),
		code: code,
	}
}

// WrapC attaches a code and a message to err. A nil err stays nil.
func WrapC(err error, code int, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withCode{
		err:   fmt.Errorf(format, args...),
		code:  code,
		cause: err,
	}
}

func (w *withCode) Error() string {
	if w.cause == nil {
		return w.err.Error()
	}
	return fmt.Sprintf("%s: %s", w.err.Error(), w.cause.Error())
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (w *withCode) Unwrap() error {
	return w.cause
}

// Code returns the attached code.
func (w *withCode) Code() int {
	return w.code
}
