package grammar

import (
	"errors"
	"fmt"
)

// Tier identifies where a grammar was fetched from.
type Tier int

const (
	// CustomTier is a custom grammar from the Registry's Source.
	CustomTier Tier = iota + 1

	// RemoteTier is the remote fallback.
	RemoteTier
)

func (t Tier) String() string {
	switch t {
	case CustomTier:
		return "custom"
	case RemoteTier:
		return "remote"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// ErrNoRemote is reported as the remote failure
// when no remote fallback is configured.
var ErrNoRemote = errors.New("no remote grammar source configured")

// CustomLoadError reports a failure to fetch or install a custom grammar.
//
// The Loader falls back to the remote tier after this error,
// so it's only ever seen wrapped inside a [RemoteLoadError].
type CustomLoadError struct {
	Name string // canonical name
	File string // file in the custom source
	Err  error
}

func (e *CustomLoadError) Error() string {
	return fmt.Sprintf("load custom grammar %q from %v: %v", e.Name, e.File, e.Err)
}

func (e *CustomLoadError) Unwrap() error { return e.Err }

// RemoteLoadError reports that a grammar could not be loaded
// from the remote fallback.
// This is the terminal failure for a grammar.
type RemoteLoadError struct {
	Name string // canonical name
	URL  string // remote address, if one was built
	Err  error

	// Custom is the failure of the custom tier
	// if it was attempted before falling back.
	Custom *CustomLoadError
}

func (e *RemoteLoadError) Error() string {
	msg := fmt.Sprintf("load grammar %q", e.Name)
	if e.URL != "" {
		msg += " from " + e.URL
	}
	msg += ": " + e.Err.Error()
	if e.Custom != nil {
		msg += " (after " + e.Custom.Error() + ")"
	}
	return msg
}

// Unwrap returns the remote failure and the custom failure, if any.
func (e *RemoteLoadError) Unwrap() []error {
	errs := []error{e.Err}
	if e.Custom != nil {
		errs = append(errs, e.Custom)
	}
	return errs
}
