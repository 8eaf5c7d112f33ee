package grammar

import (
	"context"
	"io"
	"log"

	"braces.dev/errtrace"
)

// Installer makes a grammar definition available to the highlighting engine.
type Installer interface {
	Install(name string, data []byte) error
}

// Loader fetches and installs grammars.
//
// It tries the custom grammar registered for a name first,
// and falls back to the remote source if that's missing or fails.
type Loader struct {
	// Registry holds custom grammars.
	// If nil, only the remote tier is used.
	Registry *Registry

	// Remote fetches remote grammars by URL.
	// If nil, and RemoteURL is set, a plain HTTPSource is used.
	Remote Fetcher

	// RemoteURL addresses remote grammars by canonical name.
	// If nil, the remote tier is disabled.
	RemoteURL *Template

	// Installer receives fetched grammar definitions.
	Installer Installer // required

	Log     *log.Logger
	Metrics *Metrics
}

func (l *Loader) logger() *log.Logger {
	if l.Log != nil {
		return l.Log
	}
	return log.New(io.Discard, "", 0)
}

// Load fetches and installs the grammar with the given canonical name.
//
// Failures of the custom tier are logged, not returned.
// If the remote tier fails as well, a [*RemoteLoadError] is returned.
func (l *Loader) Load(ctx context.Context, name string) error {
	log := l.logger()

	var customErr *CustomLoadError
	if l.Registry != nil {
		if d, ok := l.Registry.Lookup(name); ok {
			err := l.loadCustom(ctx, name, d)
			l.Metrics.load(CustomTier, err)
			if err == nil {
				log.Printf("Loaded custom grammar %v from %v", name, d.File)
				return nil
			}

			customErr = &CustomLoadError{Name: name, File: d.File, Err: err}
			log.Printf("Falling back to remote grammar: %v", customErr)
		}
	}

	url, err := l.loadRemote(ctx, name)
	if l.RemoteURL != nil {
		l.Metrics.load(RemoteTier, err)
	}
	if err != nil {
		rerr := &RemoteLoadError{
			Name:   name,
			URL:    url,
			Err:    err,
			Custom: customErr,
		}
		log.Printf("Unable to load grammar: %v", rerr)
		return errtrace.Wrap(rerr)
	}
	log.Printf("Loaded remote grammar %v from %v", name, url)
	return nil
}

func (l *Loader) loadCustom(ctx context.Context, name string, d *Descriptor) error {
	bs, err := l.Registry.Fetch(ctx, d)
	if err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(l.Installer.Install(name, bs))
}

// loadRemote returns the URL it tried, if any.
func (l *Loader) loadRemote(ctx context.Context, name string) (string, error) {
	if l.RemoteURL == nil {
		return "", errtrace.Wrap(ErrNoRemote)
	}

	url, err := l.RemoteURL.Expand(name)
	if err != nil {
		return "", errtrace.Wrap(err)
	}

	remote := l.Remote
	if remote == nil {
		remote = new(HTTPSource)
	}

	bs, err := remote.Fetch(ctx, url)
	if err != nil {
		return url, errtrace.Wrap(err)
	}
	if len(bs) == 0 {
		return url, errtrace.New("empty grammar definition")
	}
	return url, errtrace.Wrap(l.Installer.Install(name, bs))
}
