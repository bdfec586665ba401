package preprocessor

import (
	"errors"
	"fmt"

	"modernc.org/token"
)

// Error is the single diagnosed failure kind of the engine. Pos stays zero
// until the error leaves the file it was raised in; from then on the
// message carries that file:line and is never prefixed again.
type Error struct {
	Pos token.Position
	Msg string
	Err error
}

func (e *Error) Error() string {
	if !e.Located() {
		return e.Msg
	}
	return fmt.Sprintf("%s:%d: preprocessor: %s", e.Pos.Filename, e.Pos.Line, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Located reports whether file:line context is attached.
func (e *Error) Located() bool {
	return e.Pos.Filename != "" || e.Pos.Line > 0
}

func errorf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// locate attaches file:line to err unless it already has a location.
func locate(err error, file string, line int) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Located() {
			return pe
		}
		return &Error{Pos: token.Position{Filename: file, Line: line}, Msg: pe.Msg, Err: pe.Err}
	}
	return &Error{Pos: token.Position{Filename: file, Line: line}, Msg: err.Error(), Err: err}
}
