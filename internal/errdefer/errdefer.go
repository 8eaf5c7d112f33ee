// Package errdefer provides functions for running operations
// that must be deferred until the end of a function,
// but which may return errors that should be returned from the function.
package errdefer

import (
	"errors"
	"io"
)

// Close calls Close on the given Closer,
// and joins any error returned with the given error.
//
// Use it inside a defer statement with a named return.
func Close(err *error, closer io.Closer) {
	Call(err, closer.Close)
}

// Call runs fn and joins any error it returns with the given error.
// It's for cleanup functions that aren't attached to an io.Closer.
//
// Use it inside a defer statement with a named return.
func Call(err *error, fn func() error) {
	if cerr := fn(); cerr != nil {
		*err = errors.Join(*err, cerr)
	}
}
