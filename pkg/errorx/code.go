package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder describes a registered error code.
type Coder interface {
	// Code is the business error code.
	Code() int
	// HTTPStatus is the status written to the client.
	HTTPStatus() int
	// String is the externally visible message.
	String() string
	// Reference points at documentation, may be empty.
	Reference() string
}

// ErrUnknown is returned for codes that were never registered.
const ErrUnknown = 1

type defaultCoder struct {
	code int
	http int
	msg  string
}

func (c defaultCoder) Code() int         { return c.code }
func (c defaultCoder) HTTPStatus() int   { return c.http }
func (c defaultCoder) String() string    { return c.msg }
func (c defaultCoder) Reference() string { return "" }

var unknownCoder Coder = defaultCoder{code: ErrUnknown, http: http.StatusInternalServerError, msg: "An internal server error occurred"}

var (
	codes   = map[int]Coder{}
	codeMux sync.RWMutex
)

// Register adds or replaces a coder.
func Register(coder Coder) {
	if coder.Code() == ErrUnknown {
		panic("code 1 is reserved as ErrUnknown")
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	codes[coder.Code()] = coder
}

// MustRegister adds a coder and panics if the code is taken.
func MustRegister(coder Coder) {
	if coder.Code() == ErrUnknown {
		panic("code 1 is reserved as ErrUnknown")
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	if _, ok := codes[coder.Code()]; ok {
		panic(fmt.Sprintf("code %d already registered", coder.Code()))
	}
	codes[coder.Code()] = coder
}

// ParseCoder returns the coder attached to err, or the unknown coder.
func ParseCoder(err error) Coder {
	if err == nil {
		return nil
	}
	var v *withCode
	if errors.As(err, &v) {
		codeMux.RLock()
		defer codeMux.RUnlock()
		if coder, ok := codes[v.code]; ok {
			return coder
		}
	}
	return unknownCoder
}

// IsCode reports whether any error in the chain carries code.
func IsCode(err error, code int) bool {
	for err != nil {
		if v, ok := err.(*withCode); ok {
			if v.code == code {
				return true
			}
			err = v.cause
			continue
		}
		return false
	}
	return false
}
