package flagvalue

import (
	"errors"
	"flag"
	"strings"

	"go.abhg.dev/docsyntax/internal/sliceutil"
)

// Name is a flag value holding a language or grammar name.
// Values are trimmed and lower-cased, and may not be empty.
type Name string

var _ flag.Getter = (*Name)(nil)

// Get returns the name as a string.
func (n *Name) Get() any { return string(*n) }

// String returns the name.
func (n *Name) String() string { return string(*n) }

// Set receives a name from the command line.
func (n *Name) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return errors.New("name must not be empty")
	}
	*n = Name(s)
	return nil
}

// Names converts a list of names into strings.
func Names(ns []Name) []string {
	return sliceutil.Transform(ns, func(n Name) string { return string(n) })
}
